// Package jobs supplies the postings to visit: a jobs file, bare posting URLs
// from the command line, and the blacklist that filters them.
package jobs

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
)

var jobIDPattern = regexp.MustCompile(`/jobs/view/(?:[^/]*-)?(\d+)`)

// ParseJobID extracts the numeric posting id from a job URL. Both
// /jobs/view/<id>/ and the currentJobId query parameter are understood.
func ParseJobID(link string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", fmt.Errorf("invalid job URL %q: %w", link, err)
	}
	if m := jobIDPattern.FindStringSubmatch(u.Path); m != nil {
		return m[1], nil
	}
	if id := u.Query().Get("currentJobId"); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("no job id in URL %q", link)
}

// FromURLs builds jobs from posting URLs. Title and company stay empty until
// the posting is visited.
func FromURLs(links []string) ([]schemas.Job, error) {
	out := make([]schemas.Job, 0, len(links))
	for _, l := range links {
		id, err := ParseJobID(l)
		if err != nil {
			return nil, err
		}
		out = append(out, schemas.Job{ID: id, Link: strings.TrimSpace(l)})
	}
	return out, nil
}

// Load reads a jobs file. The format follows the extension: .json is JSON,
// anything else is YAML. Entries without an id get one from their link.
func Load(path string) ([]schemas.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var jobs []schemas.Job
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &jobs)
	} else {
		err = yaml.Unmarshal(data, &jobs)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse jobs file %s: %w", path, err)
	}

	for i := range jobs {
		j := &jobs[i]
		if j.Link == "" {
			return nil, fmt.Errorf("job %d in %s has no link", i+1, path)
		}
		if j.ID == "" {
			if j.ID, err = ParseJobID(j.Link); err != nil {
				return nil, fmt.Errorf("job %d in %s: %w", i+1, path, err)
			}
		}
	}
	return jobs, nil
}

// Dedupe drops repeated job ids, keeping the first occurrence.
func Dedupe(in []schemas.Job) []schemas.Job {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, j := range in {
		if seen[j.ID] {
			continue
		}
		seen[j.ID] = true
		out = append(out, j)
	}
	return out
}

// Blacklist rejects jobs by company or title. Entries match case-insensitively
// on word boundaries, so "meta" rejects "Meta Platforms" but not "Metabase".
type Blacklist struct {
	companies []*regexp.Regexp
	titles    []*regexp.Regexp
}

// NewBlacklist compiles the given entries. Blank entries are ignored.
func NewBlacklist(companies, titles []string) (*Blacklist, error) {
	b := &Blacklist{}
	var errs []error
	b.companies, errs = compileAll(companies, errs)
	b.titles, errs = compileAll(titles, errs)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return b, nil
}

func compileAll(words []string, errs []error) ([]*regexp.Regexp, []error) {
	var out []*regexp.Regexp
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)(?:^|\W)` + regexp.QuoteMeta(w) + `(?:$|\W)`)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid blacklist entry %q: %w", w, err))
			continue
		}
		out = append(out, re)
	}
	return out, errs
}

// Match reports whether the job is blacklisted and why.
func (b *Blacklist) Match(job schemas.Job) (string, bool) {
	if b == nil {
		return "", false
	}
	for _, re := range b.companies {
		if job.Company != "" && re.MatchString(job.Company) {
			return fmt.Sprintf("company %q is blacklisted", job.Company), true
		}
	}
	for _, re := range b.titles {
		if job.Title != "" && re.MatchString(job.Title) {
			return fmt.Sprintf("title %q is blacklisted", job.Title), true
		}
	}
	return "", false
}
