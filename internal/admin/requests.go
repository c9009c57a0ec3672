package admin

import (
	"fmt"
	"net/http"
	"net/url"

	"regdesk/internal/dashboard"
	dErrors "regdesk/pkg/domain-errors"
)

// maxConfirmIDs bounds one confirmation request.
const maxConfirmIDs = 5000

// ConfirmRequest is the JSON body of POST /admin/api/confirm.
type ConfirmRequest struct {
	IDs []string `json:"ids"`
}

// Validate only bounds the request. An empty list is answered with a warning
// by the confirmation service.
func (r *ConfirmRequest) Validate() error {
	if len(r.IDs) > maxConfirmIDs {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d ids per request", maxConfirmIDs))
	}
	return nil
}

// viewState is the dashboard state carried in query strings and hidden form
// fields so a confirmation redirect lands on the same view.
type viewState struct {
	Region     string
	Field      string
	Term       string
	Grouping   string
	GroupValue string
}

func viewStateFrom(values url.Values) viewState {
	return viewState{
		Region:     values.Get("region"),
		Field:      values.Get("field"),
		Term:       values.Get("q"),
		Grouping:   values.Get("group"),
		GroupValue: values.Get("value"),
	}
}

func (v viewState) query() dashboard.Query {
	return dashboard.Query{Region: v.Region, Field: v.Field, Term: v.Term}
}

func (v viewState) values() url.Values {
	out := url.Values{}
	set := func(key, value string) {
		if value != "" {
			out.Set(key, value)
		}
	}
	set("region", v.Region)
	set("field", v.Field)
	set("q", v.Term)
	set("group", v.Grouping)
	set("value", v.GroupValue)
	return out
}

func confirmIDsFromForm(r *http.Request) []string {
	return r.PostForm["id"]
}
