package models

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	CMSDocID            = "site"
	PagesSection        = "pages"
	FooterSection       = "footer"
	BusinessInfoSection = "businessInfo"
)

var (
	pageKeyPattern      = regexp.MustCompile(`^[a-z][a-z0-9-]{0,63}$`)
	pathSegmentPattern  = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reservedRootSegment = map[string]bool{"_id": true}
)

//go:embed cms_defaults.yaml
var cmsDefaultsYAML []byte

// PageContent is the content of one CMS page. The concrete type is chosen
// by page key (see NewPage); unknown keys get a GenericPage.
type PageContent interface {
	Header() PageHeader
	setHeader(h PageHeader)
}

type PageHeader struct {
	Title       string `bson:"title" json:"title" yaml:"title"`
	Subtitle    string `bson:"subtitle" json:"subtitle" yaml:"subtitle"`
	Description string `bson:"description" json:"description" yaml:"description"`
}

func (h *PageHeader) Header() PageHeader     { return *h }
func (h *PageHeader) setHeader(v PageHeader) { *h = v }

type TextBlock struct {
	Title string `bson:"title" json:"title" yaml:"title"`
	Body  string `bson:"body" json:"body" yaml:"body"`
	Icon  string `bson:"icon,omitempty" json:"icon,omitempty" yaml:"icon,omitempty"`
}

type FAQ struct {
	Question string `bson:"question" json:"question" yaml:"question"`
	Answer   string `bson:"answer" json:"answer" yaml:"answer"`
}

type Link struct {
	Label string `bson:"label" json:"label" yaml:"label"`
	Href  string `bson:"href" json:"href" yaml:"href"`
}

type LegalSection struct {
	Heading string `bson:"heading" json:"heading" yaml:"heading"`
	Body    string `bson:"body" json:"body" yaml:"body"`
}

type HomePage struct {
	PageHeader `bson:",inline" yaml:",inline"`
	HeroCTA    string      `bson:"heroCta" json:"heroCta" yaml:"heroCta"`
	HeroImage  string      `bson:"heroImage" json:"heroImage" yaml:"heroImage"`
	Features   []TextBlock `bson:"features" json:"features" yaml:"features"`
	CTAHeading string      `bson:"ctaHeading" json:"ctaHeading" yaml:"ctaHeading"`
	CTALabel   string      `bson:"ctaLabel" json:"ctaLabel" yaml:"ctaLabel"`
}

type BookingPage struct {
	PageHeader         `bson:",inline" yaml:",inline"`
	NameLabel          string `bson:"nameLabel" json:"nameLabel" yaml:"nameLabel"`
	EmailLabel         string `bson:"emailLabel" json:"emailLabel" yaml:"emailLabel"`
	PhoneLabel         string `bson:"phoneLabel" json:"phoneLabel" yaml:"phoneLabel"`
	PickupLabel        string `bson:"pickupLabel" json:"pickupLabel" yaml:"pickupLabel"`
	PickupPlaceholder  string `bson:"pickupPlaceholder" json:"pickupPlaceholder" yaml:"pickupPlaceholder"`
	DropoffLabel       string `bson:"dropoffLabel" json:"dropoffLabel" yaml:"dropoffLabel"`
	DropoffPlaceholder string `bson:"dropoffPlaceholder" json:"dropoffPlaceholder" yaml:"dropoffPlaceholder"`
	DateTimeLabel      string `bson:"dateTimeLabel" json:"dateTimeLabel" yaml:"dateTimeLabel"`
	PassengersLabel    string `bson:"passengersLabel" json:"passengersLabel" yaml:"passengersLabel"`
	FlightLabel        string `bson:"flightLabel" json:"flightLabel" yaml:"flightLabel"`
	NotesLabel         string `bson:"notesLabel" json:"notesLabel" yaml:"notesLabel"`
	CalculateButton    string `bson:"calculateButton" json:"calculateButton" yaml:"calculateButton"`
	SubmitButton       string `bson:"submitButton" json:"submitButton" yaml:"submitButton"`
	FareLabel          string `bson:"fareLabel" json:"fareLabel" yaml:"fareLabel"`
	DepositNote        string `bson:"depositNote" json:"depositNote" yaml:"depositNote"`
}

type HelpPage struct {
	PageHeader    `bson:",inline" yaml:",inline"`
	FAQs          []FAQ  `bson:"faqs" json:"faqs" yaml:"faqs"`
	ContactPrompt string `bson:"contactPrompt" json:"contactPrompt" yaml:"contactPrompt"`
}

// LegalPage backs both the privacy and terms pages.
type LegalPage struct {
	PageHeader  `bson:",inline" yaml:",inline"`
	LastUpdated string         `bson:"lastUpdated" json:"lastUpdated" yaml:"lastUpdated"`
	Sections    []LegalSection `bson:"sections" json:"sections" yaml:"sections"`
}

type StatusPage struct {
	PageHeader      `bson:",inline" yaml:",inline"`
	LookupLabel     string            `bson:"lookupLabel" json:"lookupLabel" yaml:"lookupLabel"`
	LookupButton    string            `bson:"lookupButton" json:"lookupButton" yaml:"lookupButton"`
	NotFoundMessage string            `bson:"notFoundMessage" json:"notFoundMessage" yaml:"notFoundMessage"`
	StatusLabels    map[string]string `bson:"statusLabels" json:"statusLabels" yaml:"statusLabels"`
}

type ManagePage struct {
	PageHeader       `bson:",inline" yaml:",inline"`
	EditButton       string `bson:"editButton" json:"editButton" yaml:"editButton"`
	CancelButton     string `bson:"cancelButton" json:"cancelButton" yaml:"cancelButton"`
	CancelConfirm    string `bson:"cancelConfirm" json:"cancelConfirm" yaml:"cancelConfirm"`
	CancelPolicyNote string `bson:"cancelPolicyNote" json:"cancelPolicyNote" yaml:"cancelPolicyNote"`
}

type FeedbackPage struct {
	PageHeader         `bson:",inline" yaml:",inline"`
	RatingLabel        string `bson:"ratingLabel" json:"ratingLabel" yaml:"ratingLabel"`
	CommentLabel       string `bson:"commentLabel" json:"commentLabel" yaml:"commentLabel"`
	CommentPlaceholder string `bson:"commentPlaceholder" json:"commentPlaceholder" yaml:"commentPlaceholder"`
	SubmitButton       string `bson:"submitButton" json:"submitButton" yaml:"submitButton"`
	ThankYou           string `bson:"thankYou" json:"thankYou" yaml:"thankYou"`
}

type ProfilePage struct {
	PageHeader `bson:",inline" yaml:",inline"`
	NameLabel  string `bson:"nameLabel" json:"nameLabel" yaml:"nameLabel"`
	PhoneLabel string `bson:"phoneLabel" json:"phoneLabel" yaml:"phoneLabel"`
	SaveButton string `bson:"saveButton" json:"saveButton" yaml:"saveButton"`
}

type PaymentsPage struct {
	PageHeader     `bson:",inline" yaml:",inline"`
	DepositHeading string `bson:"depositHeading" json:"depositHeading" yaml:"depositHeading"`
	BalanceHeading string `bson:"balanceHeading" json:"balanceHeading" yaml:"balanceHeading"`
	PayButton      string `bson:"payButton" json:"payButton" yaml:"payButton"`
	SuccessMessage string `bson:"successMessage" json:"successMessage" yaml:"successMessage"`
	CancelMessage  string `bson:"cancelMessage" json:"cancelMessage" yaml:"cancelMessage"`
}

type BookingsPage struct {
	PageHeader      `bson:",inline" yaml:",inline"`
	EmptyMessage    string `bson:"emptyMessage" json:"emptyMessage" yaml:"emptyMessage"`
	UpcomingHeading string `bson:"upcomingHeading" json:"upcomingHeading" yaml:"upcomingHeading"`
	PastHeading     string `bson:"pastHeading" json:"pastHeading" yaml:"pastHeading"`
}

type AboutPage struct {
	PageHeader `bson:",inline" yaml:",inline"`
	Story      string      `bson:"story" json:"story" yaml:"story"`
	Values     []TextBlock `bson:"values" json:"values" yaml:"values"`
	Fleet      []TextBlock `bson:"fleet" json:"fleet" yaml:"fleet"`
}

// GenericPage holds content for page keys without a dedicated schema.
type GenericPage map[string]interface{}

func (g *GenericPage) Header() PageHeader {
	str := func(k string) string {
		s, _ := (*g)[k].(string)
		return s
	}
	return PageHeader{Title: str("title"), Subtitle: str("subtitle"), Description: str("description")}
}

func (g *GenericPage) setHeader(h PageHeader) {
	if *g == nil {
		*g = GenericPage{}
	}
	(*g)["title"] = h.Title
	(*g)["subtitle"] = h.Subtitle
	(*g)["description"] = h.Description
}

type Footer struct {
	Tagline   string `bson:"tagline" json:"tagline" yaml:"tagline"`
	Copyright string `bson:"copyright" json:"copyright" yaml:"copyright"`
	Links     []Link `bson:"links" json:"links" yaml:"links"`
}

type BusinessInfo struct {
	Name    string `bson:"name" json:"name" yaml:"name"`
	Phone   string `bson:"phone" json:"phone" yaml:"phone"`
	Email   string `bson:"email" json:"email" yaml:"email"`
	Address string `bson:"address" json:"address" yaml:"address"`
	Hours   string `bson:"hours" json:"hours" yaml:"hours"`
}

// NewPage returns an empty value of the content type for key.
func NewPage(key string) PageContent {
	switch key {
	case "home":
		return &HomePage{}
	case "booking":
		return &BookingPage{}
	case "help":
		return &HelpPage{}
	case "privacy", "terms":
		return &LegalPage{}
	case "status":
		return &StatusPage{}
	case "manage":
		return &ManagePage{}
	case "feedback":
		return &FeedbackPage{}
	case "profile":
		return &ProfilePage{}
	case "payments":
		return &PaymentsPage{}
	case "bookings":
		return &BookingsPage{}
	case "about":
		return &AboutPage{}
	default:
		return &GenericPage{}
	}
}

// HasSchema reports whether key maps to a typed page.
func HasSchema(key string) bool {
	_, generic := NewPage(key).(*GenericPage)
	return !generic
}

func ValidPageKey(key string) bool {
	return pageKeyPattern.MatchString(key)
}

// KnownPageKeys lists the page keys the site renders.
func KnownPageKeys() []string {
	return []string{
		"home", "booking", "help", "privacy", "terms", "status",
		"manage", "feedback", "profile", "payments", "bookings", "about",
	}
}

// HeaderForKey derives a generic header from a page key, e.g.
// "airport-transfers" becomes "Airport Transfers".
func HeaderForKey(key string) PageHeader {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	title := strings.Join(words, " ")
	return PageHeader{
		Title:       title,
		Subtitle:    fmt.Sprintf("Everything about %s", strings.ToLower(title)),
		Description: fmt.Sprintf("This is the %s page.", strings.ToLower(title)),
	}
}

type cmsDefaults struct {
	Pages        map[string]yaml.Node `yaml:"pages"`
	Footer       Footer               `yaml:"footer"`
	BusinessInfo BusinessInfo         `yaml:"businessInfo"`
}

var loadCMSDefaults = sync.OnceValues(func() (*cmsDefaults, error) {
	var d cmsDefaults
	if err := yaml.Unmarshal(cmsDefaultsYAML, &d); err != nil {
		return nil, fmt.Errorf("failed to parse cms defaults: %w", err)
	}
	return &d, nil
})

// DefaultPage synthesizes the default content for key: a header derived
// from the key, overlaid with the page-specific defaults when the key has any.
func DefaultPage(key string) (PageContent, error) {
	page := NewPage(key)
	page.setHeader(HeaderForKey(key))

	defaults, err := loadCMSDefaults()
	if err != nil {
		return nil, err
	}
	if node, ok := defaults.Pages[key]; ok {
		if err := node.Decode(page); err != nil {
			return nil, fmt.Errorf("failed to decode defaults for page %q: %w", key, err)
		}
	}
	return page, nil
}

func DefaultFooter() (*Footer, error) {
	defaults, err := loadCMSDefaults()
	if err != nil {
		return nil, err
	}
	footer := defaults.Footer
	footer.Links = append([]Link(nil), defaults.Footer.Links...)
	return &footer, nil
}

func DefaultBusinessInfo() (*BusinessInfo, error) {
	defaults, err := loadCMSDefaults()
	if err != nil {
		return nil, err
	}
	info := defaults.BusinessInfo
	return &info, nil
}

// DecodePage decodes JSON content into the page type for key. Typed pages
// reject unknown fields and mistyped values.
func DecodePage(key string, data []byte) (PageContent, error) {
	page := NewPage(key)
	dec := json.NewDecoder(bytes.NewReader(data))
	if HasSchema(key) {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(page); err != nil {
		return nil, err
	}
	if g, ok := page.(*GenericPage); ok && *g == nil {
		*g = GenericPage{}
	}
	return page, nil
}

// FieldPath is a parsed CMS field path. Paths under "pages" carry the page
// key and the segments below it; anything else is a root path.
type FieldPath struct {
	Raw      string
	Segments []string
	PageKey  string
	Field    []string
}

func (p FieldPath) IsPage() bool {
	return p.PageKey != ""
}

func ParseFieldPath(raw string) (FieldPath, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return FieldPath{}, fmt.Errorf("fieldPath is required")
	}
	segments := strings.Split(raw, ".")
	for _, s := range segments {
		if !pathSegmentPattern.MatchString(s) {
			return FieldPath{}, fmt.Errorf("invalid path segment %q", s)
		}
	}
	if reservedRootSegment[segments[0]] {
		return FieldPath{}, fmt.Errorf("%q cannot be updated", segments[0])
	}

	fp := FieldPath{Raw: raw, Segments: segments}
	if segments[0] != PagesSection {
		return fp, nil
	}
	if len(segments) < 2 {
		return FieldPath{}, fmt.Errorf("fieldPath must name a page")
	}
	if !ValidPageKey(segments[1]) {
		return FieldPath{}, fmt.Errorf("invalid page key %q", segments[1])
	}
	fp.PageKey = segments[1]
	fp.Field = segments[2:]
	return fp, nil
}
