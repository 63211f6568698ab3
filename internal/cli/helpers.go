package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	JobKind     = "job"
	DatasetKind = "dataset"
)

var (
	pluralKinds = map[string]string{
		JobKind:     "jobs",
		DatasetKind: "datasets",
	}
)

// parseAndValidateKindId splits TYPE or TYPE/ID. The id is empty when absent.
func parseAndValidateKindId(arg string) (string, string, error) {
	kind, id, _ := strings.Cut(arg, "/")
	kind = singular(kind)
	if _, ok := pluralKinds[kind]; !ok {
		return "", "", fmt.Errorf("invalid resource kind: %s", kind)
	}

	if id == "" {
		return kind, "", nil
	}
	switch kind {
	case JobKind:
		if n, err := strconv.ParseInt(id, 10, 64); err != nil || n <= 0 {
			return "", "", fmt.Errorf("invalid job id: %s", id)
		}
	case DatasetKind:
		if _, err := uuid.Parse(id); err != nil {
			return "", "", fmt.Errorf("invalid dataset id: %s", id)
		}
	}
	return kind, id, nil
}

func jobID(id string) int64 {
	n, _ := strconv.ParseInt(id, 10, 64)
	return n
}

func singular(kind string) string {
	for singular, plural := range pluralKinds {
		if kind == plural {
			return singular
		}
	}
	return kind
}

func plural(kind string) string {
	return pluralKinds[kind]
}
