package helpers

import "github.com/gin-gonic/gin"

const sessionKey = "session"

// SessionState is the per-request view of who is calling and which console
// modes they have switched on.
type SessionState struct {
	UserID      string `json:"user_id,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
	IsAdmin     bool   `json:"is_admin"`
	EditMode    bool   `json:"edit_mode"`
	AccessToken string `json:"-"`
}

func (s *SessionState) Authenticated() bool {
	return s.UserID != ""
}

func SetSession(c *gin.Context, s *SessionState) {
	c.Set(sessionKey, s)
}

// SessionFrom returns the request's session, or a guest session when none
// was attached.
func SessionFrom(c *gin.Context) *SessionState {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(*SessionState); ok && s != nil {
			return s
		}
	}
	return &SessionState{Role: "guest"}
}
