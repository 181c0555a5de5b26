package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
)

func newTestCMS() (*CMSService, *fakeCMSRepo) {
	repo := newFakeCMSRepo()
	return NewCMSService(repo, nil, testLogger()), repo
}

func TestGetPagePersistsDefaultsOnFirstRead(t *testing.T) {
	svc, repo := newTestCMS()

	page, err := svc.GetPage(context.Background(), "home")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	home, ok := page.(*models.HomePage)
	if !ok {
		t.Fatalf("page type = %T, want *models.HomePage", page)
	}
	if home.Title != "Airport Car Service" || len(home.Features) != 3 {
		t.Errorf("unexpected defaults: %+v", home)
	}
	if repo.setCount() != 1 {
		t.Fatalf("writes after first read = %d, want 1", repo.setCount())
	}

	if _, err := svc.GetPage(context.Background(), "home"); err != nil {
		t.Fatalf("second GetPage: %v", err)
	}
	if repo.setCount() != 1 {
		t.Errorf("second read must not write again (writes = %d)", repo.setCount())
	}
}

func TestGetPageUnknownKeyDerivesHeader(t *testing.T) {
	svc, _ := newTestCMS()

	page, err := svc.GetPage(context.Background(), "airport-transfers")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if got := page.Header().Title; got != "Airport Transfers" {
		t.Errorf("title = %q", got)
	}
}

func TestGetPageInvalidKey(t *testing.T) {
	svc, repo := newTestCMS()
	if _, err := svc.GetPage(context.Background(), "Bad Key"); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if repo.setCount() != 0 {
		t.Error("nothing should be written")
	}
}

func TestGetPageReturnsDefaultsWhenPersistFails(t *testing.T) {
	svc, repo := newTestCMS()
	repo.writeErr = errStore

	page, err := svc.GetPage(context.Background(), "help")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if page.Header().Title != "Help Center" {
		t.Errorf("title = %q", page.Header().Title)
	}
}

func TestGetPageBundleIncludesSharedSections(t *testing.T) {
	svc, _ := newTestCMS()

	bundle, err := svc.GetPageBundle(context.Background(), "booking")
	if err != nil {
		t.Fatalf("GetPageBundle: %v", err)
	}
	if _, ok := bundle.Pages["booking"].(*models.BookingPage); !ok {
		t.Errorf("booking page type = %T", bundle.Pages["booking"])
	}
	if bundle.Footer == nil || len(bundle.Footer.Links) == 0 {
		t.Errorf("footer = %+v", bundle.Footer)
	}
	if bundle.BusinessInfo == nil || bundle.BusinessInfo.Name == "" {
		t.Errorf("business info = %+v", bundle.BusinessInfo)
	}
}

func TestUpdateFieldTitleOnly(t *testing.T) {
	svc, _ := newTestCMS()
	ctx := context.Background()

	if err := svc.UpdateField(ctx, "pages.home.title", json.RawMessage(`"Fly in, ride out"`)); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	page, err := svc.GetPage(ctx, "home")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	home := page.(*models.HomePage)
	if home.Title != "Fly in, ride out" {
		t.Errorf("title = %q", home.Title)
	}
	if home.Subtitle == "" || len(home.Features) != 3 {
		t.Errorf("other fields must keep their values: %+v", home)
	}
}

func TestUpdateFieldArrayIndex(t *testing.T) {
	svc, _ := newTestCMS()
	ctx := context.Background()

	if err := svc.UpdateField(ctx, "pages.help.faqs.1.answer", json.RawMessage(`"Your driver waits."`)); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	page, _ := svc.GetPage(ctx, "help")
	help := page.(*models.HelpPage)
	if help.FAQs[1].Answer != "Your driver waits." {
		t.Errorf("answer = %q", help.FAQs[1].Answer)
	}
	if help.FAQs[0].Answer == "Your driver waits." {
		t.Error("other entries must be untouched")
	}

	err := svc.UpdateField(ctx, "pages.help.faqs.9.answer", json.RawMessage(`"x"`))
	if !domain.IsValidation(err) {
		t.Errorf("out of range index: %v", err)
	}
}

func TestUpdateFieldGenericPageAcceptsAnyField(t *testing.T) {
	svc, _ := newTestCMS()
	ctx := context.Background()

	if err := svc.UpdateField(ctx, "pages.airport-transfers.heroText", json.RawMessage(`"Hello"`)); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	page, _ := svc.GetPage(ctx, "airport-transfers")
	g := page.(*models.GenericPage)
	if (*g)["heroText"] != "Hello" || (*g)["title"] != "Airport Transfers" {
		t.Errorf("page = %v", *g)
	}
}

func TestUpdateFieldRootMerge(t *testing.T) {
	svc, _ := newTestCMS()
	ctx := context.Background()
	if _, err := svc.GetPageBundle(ctx, "home"); err != nil {
		t.Fatalf("GetPageBundle: %v", err)
	}

	err := svc.UpdateField(ctx, "businessInfo", json.RawMessage(`{"phone":"+1 555 0199"}`))
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	bundle, err := svc.GetPageBundle(ctx, "home")
	if err != nil {
		t.Fatalf("GetPageBundle: %v", err)
	}
	if bundle.BusinessInfo.Phone != "+1 555 0199" {
		t.Errorf("phone = %q", bundle.BusinessInfo.Phone)
	}
	if bundle.BusinessInfo.Name != "Airport Car Service" {
		t.Errorf("merge must keep sibling fields, name = %q", bundle.BusinessInfo.Name)
	}
}

func TestUpdateFieldSharedSectionsKeepTheirShape(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		value string
		want  string
	}{
		{"footer scalar", "footer", `"oops"`, "must be an object"},
		{"footer links scalar", "footer.links", `"oops"`, "links must be a list"},
		{"footer unknown field", "footer.banner", `"x"`, "unknown field"},
		{"phone object", "businessInfo.phone", `{"x":1}`, "phone must be a string"},
		{"business info list", "businessInfo", `[1,2]`, "must be an object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestCMS()
			ctx := context.Background()
			if _, err := svc.GetPageBundle(ctx, "home"); err != nil {
				t.Fatalf("GetPageBundle: %v", err)
			}
			before := repo.setCount()

			err := svc.UpdateField(ctx, tt.path, json.RawMessage(tt.value))
			if !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
			if repo.setCount() != before {
				t.Error("rejected update must not write")
			}

			for _, key := range []string{"home", "booking", "never-seen"} {
				if _, err := svc.GetPageBundle(ctx, key); err != nil {
					t.Errorf("GetPageBundle(%q) after rejected update: %v", key, err)
				}
			}
		})
	}
}

func TestUpdateFieldSharedSectionBeforeFirstRead(t *testing.T) {
	svc, _ := newTestCMS()
	ctx := context.Background()

	if err := svc.UpdateField(ctx, "businessInfo.phone", json.RawMessage(`"+1 555 0100"`)); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if err := svc.UpdateField(ctx, "footer.links.0.label", json.RawMessage(`"Book now"`)); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}

	bundle, err := svc.GetPageBundle(ctx, "home")
	if err != nil {
		t.Fatalf("GetPageBundle: %v", err)
	}
	wantInfo, _ := models.DefaultBusinessInfo()
	wantInfo.Phone = "+1 555 0100"
	if *bundle.BusinessInfo != *wantInfo {
		t.Errorf("business info = %+v, want %+v", *bundle.BusinessInfo, *wantInfo)
	}

	want, _ := models.DefaultFooter()
	if bundle.Footer.Links[0].Label != "Book now" || len(bundle.Footer.Links) != len(want.Links) {
		t.Errorf("footer links = %+v", bundle.Footer.Links)
	}
	if bundle.Footer.Tagline != want.Tagline {
		t.Errorf("tagline = %q, want %q", bundle.Footer.Tagline, want.Tagline)
	}
}

func TestUpdateFieldUnknownRootMerges(t *testing.T) {
	svc, repo := newTestCMS()

	err := svc.UpdateField(context.Background(), "banner", json.RawMessage(`{"text":"Holiday rates","active":true}`))
	if err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	banner, ok := repo.doc["banner"].(map[string]interface{})
	if !ok || banner["text"] != "Holiday rates" || banner["active"] != true {
		t.Errorf("banner = %v", repo.doc["banner"])
	}
}

func TestUpdateFieldRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		value string
		want  string
	}{
		{"missing path", "", `"x"`, "fieldPath"},
		{"missing value", "pages.home.title", ``, "value is required"},
		{"invalid json", "pages.home.title", `{`, "valid JSON"},
		{"reserved id", "_id", `"x"`, "cannot be updated"},
		{"wrong type", "pages.home.title", `42`, "must be a string"},
		{"unknown field", "pages.home.bogus", `"x"`, "unknown field"},
		{"list expected", "pages.home.features", `"x"`, "must be a list"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestCMS()
			_, _ = svc.GetPage(context.Background(), "home")
			before := repo.setCount()

			var value json.RawMessage
			if tt.value != "" {
				value = json.RawMessage(tt.value)
			}
			err := svc.UpdateField(context.Background(), tt.path, value)
			if !domain.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
			if repo.setCount() != before {
				t.Error("rejected update must not write")
			}
		})
	}
}

func TestUpdateFieldPersistFailure(t *testing.T) {
	svc, repo := newTestCMS()
	repo.writeErr = errStore

	err := svc.UpdateField(context.Background(), "footer.tagline", json.RawMessage(`"On time"`))
	if !domain.IsUpstream(err) || err.Error() != MsgCMSSaveFailed {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdatePageReplacesContent(t *testing.T) {
	svc, _ := newTestCMS()
	ctx := context.Background()

	content := json.RawMessage(`{"title":"Terms","subtitle":"","description":"","lastUpdated":"2026-01-01","sections":[]}`)
	if err := svc.UpdateField(ctx, "pages.terms", content); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	page, _ := svc.GetPage(ctx, "terms")
	legal := page.(*models.LegalPage)
	if legal.LastUpdated != "2026-01-01" || len(legal.Sections) != 0 {
		t.Errorf("page = %+v", legal)
	}

	if _, err := svc.UpdatePage(ctx, "terms", json.RawMessage(`{"heroCta":"x"}`)); !domain.IsValidation(err) {
		t.Errorf("schema mismatch: %v", err)
	}
}

func TestUploadImageWithoutUploader(t *testing.T) {
	svc, _ := newTestCMS()
	if _, err := svc.UploadImage(context.Background(), strings.NewReader("img"), "a.png"); !domain.IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
