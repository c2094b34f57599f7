package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmorganca/ollama/api"

	"modelconsole/pkg/types"
)

// TagLister lists the daemon's installed models; *daemon.Client satisfies it.
type TagLister interface {
	Tags(ctx context.Context) (api.ListResponse, error)
}

// Load asks the daemon for its models and builds the catalog. defaultModel
// marks the matching entry.
func Load(ctx context.Context, l TagLister, defaultModel string) ([]types.Model, error) {
	list, err := l.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return FromTags(list, defaultModel), nil
}

// FromTags maps the daemon's tag list to catalog entries sorted by name.
func FromTags(list api.ListResponse, defaultModel string) []types.Model {
	models := make([]types.Model, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, types.Model{
			Name:       m.Name,
			Size:       m.Size,
			SizeHuman:  HumanSize(m.Size),
			Digest:     shortDigest(m.Digest),
			ModifiedAt: m.ModifiedAt,
			Default:    defaultModel != "" && SameModel(m.Name, defaultModel),
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models
}

// SameModel compares names treating a missing tag as ":latest".
func SameModel(a, b string) bool {
	return withTag(a) == withTag(b)
}

// Contains reports whether name is in models.
func Contains(models []types.Model, name string) bool {
	for _, m := range models {
		if SameModel(m.Name, name) {
			return true
		}
	}
	return false
}

func withTag(name string) string {
	name = strings.TrimSpace(name)
	if name != "" && !strings.Contains(name, ":") {
		return name + ":latest"
	}
	return name
}

func shortDigest(d string) string {
	d = strings.TrimPrefix(d, "sha256:")
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

// HumanSize formats bytes with decimal units, as the daemon's CLI does.
func HumanSize(n int64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
