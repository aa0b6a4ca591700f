package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/vowline/pkg/helpers"
)

// RunsIndexMapping is applied when the runs index is first created.
const RunsIndexMapping = `{
  "mappings": {
    "properties": {
      "run_id":       {"type": "keyword"},
      "caller_id":    {"type": "keyword"},
      "passed":       {"type": "integer"},
      "failed":       {"type": "integer"},
      "failed_keys":  {"type": "keyword"},
      "results":      {"type": "text"},
      "started_at":   {"type": "date"},
      "finished_at":  {"type": "date"}
    }
  }
}`

// RunDoc is the indexed summary of one finished run-all.
type RunDoc struct {
	RunID      string    `json:"run_id"`
	CallerID   string    `json:"caller_id"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	FailedKeys []string  `json:"failed_keys"`
	Results    []string  `json:"results"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func runDocFrom(st *SuiteState) RunDoc {
	doc := RunDoc{
		RunID:      st.RunID,
		CallerID:   st.CallerID,
		Passed:     st.Passed,
		Failed:     st.Failed,
		FailedKeys: []string{},
		Results:    make([]string, 0, len(st.Checks)),
	}
	if st.StartedAt != nil {
		doc.StartedAt = *st.StartedAt
	}
	if st.FinishedAt != nil {
		doc.FinishedAt = *st.FinishedAt
	}
	for _, c := range st.Checks {
		if c.Status == StatusFailed {
			doc.FailedKeys = append(doc.FailedKeys, c.Key)
		}
		doc.Results = append(doc.Results, c.Key+": "+c.Result)
	}
	return doc
}

// RunIndex stores finished suite runs in Elasticsearch for later search.
type RunIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewRunIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *RunIndex {
	if logger == nil {
		logger = helpers.NewNopLogger()
	}
	return &RunIndex{es: es, index: index, logger: logger}
}

func (r *RunIndex) enabled() bool {
	return r != nil && r.es != nil && r.index != ""
}

func (r *RunIndex) IndexRun(ctx context.Context, st *SuiteState) error {
	if !r.enabled() {
		return nil
	}
	b, err := json.Marshal(runDocFrom(st))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: r.index, DocumentID: st.RunID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, r.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index %s: %s", r.index, res.Status())
	}
	r.logger.WithFields(logrus.Fields{"run_id": st.RunID, "index": r.index}).Debug("suite run indexed")
	return nil
}

// SearchRuns matches q against check results and failed keys of the
// caller's runs, newest first.
func (r *RunIndex) SearchRuns(ctx context.Context, callerID, q string, size int) ([]RunDoc, error) {
	if !r.enabled() {
		return []RunDoc{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	must := []map[string]any{{"term": map[string]any{"caller_id": callerID}}}
	if strings.TrimSpace(q) != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"failed_keys^2", "results"},
			},
		})
	}
	query := map[string]any{
		"query": map[string]any{"bool": map[string]any{"must": must}},
		"sort":  []map[string]any{{"finished_at": map[string]any{"order": "desc"}}},
		"size":  size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.es.Search(r.es.Search.WithContext(c), r.es.Search.WithIndex(r.index), r.es.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search %s: %s", r.index, res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source RunDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]RunDoc, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

var _ RunRecorder = (*RunIndex)(nil)
