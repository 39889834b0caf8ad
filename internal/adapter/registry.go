package adapter

import (
	"fmt"
	"net/http"

	"github.com/mkorchagin/vacradar/internal/model"
)

// New returns the adapter for a configured source name.
func New(name string, client *http.Client) (model.SourceAdapter, error) {
	switch name {
	case "hh":
		return NewHHAdapter(client), nil
	case "habr":
		return NewHabrAdapter(client), nil
	case "geekjob":
		return NewGeekjobAdapter(client), nil
	case "getmatch":
		return NewGetmatchAdapter(client), nil
	case "hirehi":
		return NewHirehiAdapter(client), nil
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}

// Names lists every supported source.
func Names() []string {
	return []string{"hh", "habr", "geekjob", "getmatch", "hirehi"}
}
