package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/joshua-takyi/airportcar/internal/domain"
	"github.com/joshua-takyi/airportcar/internal/models"
)

const MsgCMSSaveFailed = "Could not save the content. Please try again."

type ImageUploader interface {
	Upload(ctx context.Context, file io.Reader, filename string) (string, error)
}

// PageBundle is what a page render needs: the page itself plus the shared
// footer and business info sections.
type PageBundle struct {
	Pages        map[string]models.PageContent `json:"pages"`
	Footer       *models.Footer                `json:"footer"`
	BusinessInfo *models.BusinessInfo          `json:"businessInfo"`
	EditMode     bool                          `json:"editMode"`
}

type CMSService struct {
	repo     models.CMSRepo
	uploader ImageUploader
	logger   *slog.Logger
}

// NewCMSService builds the resolver. uploader may be nil when image uploads
// are not configured.
func NewCMSService(repo models.CMSRepo, uploader ImageUploader, logger *slog.Logger) *CMSService {
	return &CMSService{repo: repo, uploader: uploader, logger: logger}
}

func pagePath(key string) string {
	return models.PagesSection + "." + key
}

// GetPage returns the content for key. A page that was never stored is
// synthesized from the defaults and persisted before it is returned, so
// every key always resolves.
func (s *CMSService) GetPage(ctx context.Context, key string) (models.PageContent, error) {
	if !models.ValidPageKey(key) {
		return nil, domain.ValidationError{Field: "page", Msg: fmt.Sprintf("invalid page key %q", key)}
	}

	page := models.NewPage(key)
	found, err := s.repo.GetSection(ctx, pagePath(key), page)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load page", "page", key, "error", err)
		return nil, domain.UpstreamError{Msg: "Could not load the page content.", Err: err}
	}
	if found {
		return page, nil
	}

	def, err := models.DefaultPage(key)
	if err != nil {
		return nil, fmt.Errorf("failed to build default page %q: %w", key, err)
	}
	if err := s.repo.SetSection(ctx, pagePath(key), def); err != nil {
		// still renderable; the next read retries the write
		s.logger.ErrorContext(ctx, "Failed to persist default page", "page", key, "error", err)
		return def, nil
	}
	s.logger.InfoContext(ctx, "Default page content created", "page", key)
	return def, nil
}

func (s *CMSService) GetPageBundle(ctx context.Context, key string) (*PageBundle, error) {
	page, err := s.GetPage(ctx, key)
	if err != nil {
		return nil, err
	}
	footer, err := resolveSection(ctx, s, models.FooterSection, models.DefaultFooter)
	if err != nil {
		return nil, err
	}
	info, err := resolveSection(ctx, s, models.BusinessInfoSection, models.DefaultBusinessInfo)
	if err != nil {
		return nil, err
	}
	return &PageBundle{
		Pages:        map[string]models.PageContent{key: page},
		Footer:       footer,
		BusinessInfo: info,
	}, nil
}

// resolveSection applies the same write-on-read defaulting as GetPage to a
// shared root section.
func resolveSection[T any](ctx context.Context, s *CMSService, path string, defaults func() (*T, error)) (*T, error) {
	out := new(T)
	found, err := s.repo.GetSection(ctx, path, out)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load section", "section", path, "error", err)
		return nil, domain.UpstreamError{Msg: "Could not load the page content.", Err: err}
	}
	if found {
		return out, nil
	}

	def, err := defaults()
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetSection(ctx, path, def); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist default section", "section", path, "error", err)
	}
	return def, nil
}

// UpdateField applies one field-level edit.
//
// pages.<key>.<field>[.<sub>...] overlays the named field on the stored
// page, checks the result against the page's schema and writes the whole
// page back. pages.<key> replaces the page. The footer and businessInfo
// sections are checked against their types the same way. Any other path is
// deep-merged into the root document.
func (s *CMSService) UpdateField(ctx context.Context, fieldPath string, value json.RawMessage) error {
	fp, err := models.ParseFieldPath(fieldPath)
	if err != nil {
		return domain.ValidationError{Field: "fieldPath", Msg: err.Error()}
	}
	if len(value) == 0 {
		return domain.ValidationError{Field: "value", Msg: "value is required"}
	}

	var decoded interface{}
	if err := json.Unmarshal(value, &decoded); err != nil {
		return domain.ValidationError{Field: "value", Msg: "value must be valid JSON"}
	}

	switch {
	case fp.IsPage() && len(fp.Field) == 0:
		_, err := s.UpdatePage(ctx, fp.PageKey, value)
		return err
	case fp.IsPage():
		return s.updatePageField(ctx, fp, decoded)
	case fp.Segments[0] == models.FooterSection:
		return updateSection(ctx, s, fp, decoded, models.DefaultFooter)
	case fp.Segments[0] == models.BusinessInfoSection:
		return updateSection(ctx, s, fp, decoded, models.DefaultBusinessInfo)
	default:
		return s.mergeRoot(ctx, fp, decoded)
	}
}

func (s *CMSService) updatePageField(ctx context.Context, fp models.FieldPath, value interface{}) error {
	page, err := s.GetPage(ctx, fp.PageKey)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to encode page %q: %w", fp.PageKey, err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("failed to decode page %q: %w", fp.PageKey, err)
	}
	if fields == nil {
		fields = map[string]interface{}{}
	}

	if err := setPath(fields, fp.Field, value); err != nil {
		return domain.ValidationError{Field: fp.Raw, Msg: err.Error()}
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode page %q: %w", fp.PageKey, err)
	}
	updated, err := models.DecodePage(fp.PageKey, merged)
	if err != nil {
		return domain.ValidationError{Field: fp.Raw, Msg: describeDecodeError(err), Err: err}
	}

	return s.persist(ctx, func() error {
		return s.repo.SetSection(ctx, pagePath(fp.PageKey), updated)
	}, "field", fp.Raw)
}

// updateSection overlays value on a shared section resolved with its
// defaults and writes it back only if the result still decodes as T. A
// bare section path with an object value merges into the stored section.
func updateSection[T any](ctx context.Context, s *CMSService, fp models.FieldPath, value interface{}, defaults func() (*T, error)) error {
	section := fp.Segments[0]
	current, err := resolveSection(ctx, s, section, defaults)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode section %q: %w", section, err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("failed to decode section %q: %w", section, err)
	}

	if len(fp.Segments) == 1 {
		obj, ok := value.(map[string]interface{})
		if !ok {
			return domain.ValidationError{Field: fp.Raw, Msg: fmt.Sprintf("%s must be an object", section)}
		}
		deepMerge(fields, obj)
	} else if err := setPath(fields, fp.Segments[1:], value); err != nil {
		return domain.ValidationError{Field: fp.Raw, Msg: err.Error()}
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode section %q: %w", section, err)
	}
	updated := new(T)
	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	if err := dec.Decode(updated); err != nil {
		return domain.ValidationError{Field: fp.Raw, Msg: describeDecodeError(err), Err: err}
	}

	return s.persist(ctx, func() error {
		return s.repo.SetSection(ctx, section, updated)
	}, "field", fp.Raw)
}

func (s *CMSService) mergeRoot(ctx context.Context, fp models.FieldPath, value interface{}) error {
	fields := map[string]interface{}{}
	if obj, ok := value.(map[string]interface{}); ok && len(obj) > 0 {
		flatten(fp.Raw, obj, fields)
	} else {
		fields[fp.Raw] = value
	}

	return s.persist(ctx, func() error {
		return s.repo.MergeFields(ctx, fields)
	}, "field", fp.Raw)
}

// UpdatePage replaces the whole content of a page.
func (s *CMSService) UpdatePage(ctx context.Context, key string, content json.RawMessage) (models.PageContent, error) {
	if !models.ValidPageKey(key) {
		return nil, domain.ValidationError{Field: "page", Msg: fmt.Sprintf("invalid page key %q", key)}
	}
	if len(content) == 0 {
		return nil, domain.ValidationError{Field: "value", Msg: "value is required"}
	}
	page, err := models.DecodePage(key, content)
	if err != nil {
		return nil, domain.ValidationError{Field: pagePath(key), Msg: describeDecodeError(err), Err: err}
	}

	err = s.persist(ctx, func() error {
		return s.repo.SetSection(ctx, pagePath(key), page)
	}, "page", key)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *CMSService) persist(ctx context.Context, write func() error, attrs ...any) error {
	if err := write(); err != nil {
		s.logger.ErrorContext(ctx, "CMS update failed", append(attrs, "error", err)...)
		return domain.UpstreamError{Msg: MsgCMSSaveFailed, Err: err}
	}
	s.logger.InfoContext(ctx, "CMS content updated", attrs...)
	return nil
}

// UploadImage stores an image for use as a content value and returns its URL.
func (s *CMSService) UploadImage(ctx context.Context, file io.Reader, filename string) (string, error) {
	if s.uploader == nil {
		return "", domain.UpstreamError{Msg: "Image uploads are not configured."}
	}
	url, err := s.uploader.Upload(ctx, file, filename)
	if err != nil {
		s.logger.ErrorContext(ctx, "Image upload failed", "filename", filename, "error", err)
		return "", domain.UpstreamError{Msg: "Could not upload the image.", Err: err}
	}
	return url, nil
}

// setPath sets value at path inside m, creating intermediate objects.
// Numeric segments index into existing arrays.
func setPath(m map[string]interface{}, path []string, value interface{}) error {
	var cur interface{} = m
	for i, seg := range path {
		last := i == len(path)-1
		switch node := cur.(type) {
		case map[string]interface{}:
			if last {
				node[seg] = value
				return nil
			}
			next, ok := node[seg]
			if !ok || next == nil {
				next = map[string]interface{}{}
				node[seg] = next
			}
			cur = next
		case []interface{}:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return fmt.Errorf("%s is not a valid index", seg)
			}
			if last {
				node[idx] = value
				return nil
			}
			cur = node[idx]
		default:
			return fmt.Errorf("cannot set %s inside a non-object value", strings.Join(path[i:], "."))
		}
	}
	return nil
}

// deepMerge copies src into dst, descending into objects present on both
// sides.
func deepMerge(dst, src map[string]interface{}) {
	for k, v := range src {
		child, ok := v.(map[string]interface{})
		existing, exists := dst[k].(map[string]interface{})
		if ok && exists {
			deepMerge(existing, child)
			continue
		}
		dst[k] = v
	}
}

// flatten turns nested objects into dotted $set paths so sibling fields
// already stored are left alone.
func flatten(prefix string, obj map[string]interface{}, out map[string]interface{}) {
	for k, v := range obj {
		key := prefix + "." + k
		if child, ok := v.(map[string]interface{}); ok && len(child) > 0 {
			flatten(key, child, out)
			continue
		}
		out[key] = v
	}
}

func describeDecodeError(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "value"
		}
		return fmt.Sprintf("%s must be %s", field, jsonKind(typeErr.Type))
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "json: unknown field ") {
		return "unknown field " + strings.TrimPrefix(msg, "json: unknown field ")
	}
	return "invalid content"
}

func jsonKind(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Map, reflect.Struct:
		return "an object"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int64, reflect.Float64:
		return "a number"
	default:
		return "a " + t.Kind().String()
	}
}
