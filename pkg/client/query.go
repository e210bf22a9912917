package client

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// query collects only the parameters that are set.
type query struct {
	values url.Values
}

func newQuery() *query {
	return &query{values: url.Values{}}
}

func (q *query) str(key, value string) *query {
	if value != "" {
		q.values.Set(key, value)
	}
	return q
}

func (q *query) num(key string, value int) *query {
	if value > 0 {
		q.values.Set(key, strconv.Itoa(value))
	}
	return q
}

func (q *query) date(key string, t *time.Time) *query {
	if t != nil && !t.IsZero() {
		q.values.Set(key, t.Format(dateLayout))
	}
	return q
}

func (q *query) path(base string) string {
	if len(q.values) == 0 {
		return base
	}
	return base + "?" + q.values.Encode()
}

func idPath(base string, id int, suffix ...string) string {
	p := base + "/" + url.PathEscape(strconv.Itoa(id))
	for _, s := range suffix {
		p += "/" + url.PathEscape(s)
	}
	return p
}

func isAdminPath(endpoint string) bool {
	return endpoint == "/admin" || strings.HasPrefix(endpoint, "/admin/")
}
