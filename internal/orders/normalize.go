package orders

import (
	"errors"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"portal-chat/internal/models"
)

var (
	ErrInvalidJSON  = errors.New("order document is not valid JSON")
	ErrUnknownShape = errors.New("unknown order document shape")
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Normalize maps any of the backend's order document shapes onto one view:
// flat orders, orders nested under "application", and legacy submissions
// whose form_data may itself be a JSON-encoded string.
func Normalize(raw []byte) (models.OrderView, error) {
	if !gjson.ValidBytes(raw) {
		return models.OrderView{}, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return models.OrderView{}, ErrUnknownShape
	}

	var view models.OrderView
	switch {
	case doc.Get("order_id").Exists():
		view = flat(doc)
	case doc.Get("application").IsObject():
		view = nested(doc.Get("application"))
	case doc.Get("submission_id").Exists():
		view = legacy(doc)
	default:
		return models.OrderView{}, ErrUnknownShape
	}
	if view.OrderID == "" {
		return models.OrderView{}, ErrUnknownShape
	}
	view.ConversationID = models.ConversationForOrder(view.OrderID)
	view.Status = normalizeStatus(view.Status)
	return view, nil
}

func flat(doc gjson.Result) models.OrderView {
	return models.OrderView{
		OrderID:       doc.Get("order_id").String(),
		Service:       doc.Get("service").String(),
		Status:        doc.Get("status").String(),
		CustomerName:  doc.Get("customer_name").String(),
		CustomerEmail: doc.Get("customer_email").String(),
		Amount:        doc.Get("amount").Float(),
		SubmittedAt:   parseTime(doc.Get("submitted_at")),
		Documents:     documents(doc.Get("documents")),
		Fields:        fields(doc.Get("details")),
	}
}

func nested(app gjson.Result) models.OrderView {
	return models.OrderView{
		OrderID:       app.Get("id").String(),
		Service:       app.Get("service_name").String(),
		Status:        app.Get("state").String(),
		CustomerName:  app.Get("applicant.name").String(),
		CustomerEmail: app.Get("applicant.email").String(),
		Amount:        app.Get("fee").Float(),
		SubmittedAt:   parseTime(app.Get("submitted")),
		Documents:     documents(app.Get("documents")),
		Fields:        fields(app.Get("answers")),
	}
}

func legacy(doc gjson.Result) models.OrderView {
	form := doc.Get("form_data")
	if form.Type == gjson.String && gjson.Valid(form.Str) {
		form = gjson.Parse(form.Str)
	}

	name := form.Get("full_name").String()
	if name == "" {
		name = strings.TrimSpace(form.Get("first_name").String() + " " + form.Get("last_name").String())
	}
	service := doc.Get("form_type").String()
	if service == "" {
		service = form.Get("service").String()
	}
	status := doc.Get("status").String()
	if status == "" {
		status = "submitted"
	}
	return models.OrderView{
		OrderID:       doc.Get("submission_id").String(),
		Service:       service,
		Status:        status,
		CustomerName:  name,
		CustomerEmail: form.Get("email").String(),
		Amount:        doc.Get("amount").Float(),
		SubmittedAt:   parseTime(doc.Get("created")),
		Documents:     documents(doc.Get("attachments")),
		Fields:        fields(form),
	}
}

// documents accepts a list of names or of objects carrying a name.
func documents(list gjson.Result) []string {
	if !list.IsArray() {
		return nil
	}
	var out []string
	list.ForEach(func(_, item gjson.Result) bool {
		name := item.String()
		if item.IsObject() {
			name = item.Get("name").String()
			if name == "" {
				name = item.Get("filename").String()
			}
		}
		if name != "" {
			out = append(out, name)
		}
		return true
	})
	return out
}

// fields keeps the scalar entries of an object as strings.
func fields(obj gjson.Result) map[string]string {
	if !obj.IsObject() {
		return nil
	}
	out := map[string]string{}
	obj.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() || value.IsArray() || value.Type == gjson.Null {
			return true
		}
		out[key.String()] = value.String()
		return true
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseTime(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		return time.Unix(v.Int(), 0).UTC()
	case gjson.String:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, v.Str); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

func normalizeStatus(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
