package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"

	"github.com/manuelcattigobetti/provaANPI/internal/domain/entity"
)

// UserIndex mirrors user records into Elasticsearch for fuzzy name/email
// search. Postgres stays authoritative: the mirror only yields ids, and every
// write here is best-effort. A nil UserIndex (or nil client) disables the
// feature without branching at call sites.
type UserIndex struct {
	es    *elasticsearch.Client
	index string
	log   *logrus.Logger
}

func NewUserIndex(es *elasticsearch.Client, index string, log *logrus.Logger) *UserIndex {
	return &UserIndex{es: es, index: index, log: log}
}

func (i *UserIndex) Enabled() bool {
	return i != nil && i.es != nil
}

type userDoc struct {
	ID        int64  `json:"id"`
	Surname   string `json:"surname"`
	GivenName string `json:"given_name"`
	Email     string `json:"email"`
	Level     int    `json:"level"`
}

func (i *UserIndex) Index(ctx context.Context, u *entity.User) {
	if !i.Enabled() {
		return
	}
	body, err := json.Marshal(userDoc{
		ID: u.ID, Surname: u.Surname, GivenName: u.GivenName, Email: u.Email, Level: u.Level,
	})
	if err != nil {
		return
	}
	res, err := i.es.Index(i.index, bytes.NewReader(body),
		i.es.Index.WithDocumentID(strconv.FormatInt(u.ID, 10)),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		i.warn("index", err)
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		i.warn("index", fmt.Errorf("status %s", res.Status()))
	}
}

func (i *UserIndex) Remove(ctx context.Context, id int64) {
	if !i.Enabled() {
		return
	}
	res, err := i.es.Delete(i.index, strconv.FormatInt(id, 10),
		i.es.Delete.WithContext(ctx),
	)
	if err != nil {
		i.warn("delete", err)
		return
	}
	defer func() { _ = res.Body.Close() }()
}

// Search runs a fuzzy multi-field match and returns matching user ids in
// relevance order.
func (i *UserIndex) Search(ctx context.Context, query string, limit int) ([]int64, error) {
	if !i.Enabled() {
		return nil, nil
	}
	body, err := json.Marshal(map[string]any{
		"size": limit,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"surname^2", "given_name", "email"},
				"fuzziness": "AUTO",
			},
		},
	})
	if err != nil {
		return nil, err
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var out struct {
		Hits struct {
			Hits []struct {
				Source userDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		ids = append(ids, h.Source.ID)
	}
	return ids, nil
}

func (i *UserIndex) warn(op string, err error) {
	if i.log != nil {
		i.log.WithError(err).WithField("op", op).Warn("user search mirror degraded")
	}
}
