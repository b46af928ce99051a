package core

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownSource is returned when an import names an unregistered source.
var ErrUnknownSource = errors.New("unknown import source")

// Field is a RawRow field a source column can feed.
type Field string

const (
	FieldTitle       Field = "title"
	FieldYear        Field = "year"
	FieldStatus      Field = "status"
	FieldRating      Field = "rating"
	FieldNotes       Field = "notes"
	FieldDateAdded   Field = "dateAdded"
	FieldDateWatched Field = "dateWatched"
	FieldProviders   Field = "streamingProviders"
	FieldMediaKind   Field = "mediaKind"
)

// SourceDefinition describes the file layout of one import source.
type SourceDefinition struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`

	// Columns lists the header names accepted for each field. Matching
	// ignores case, spaces and underscores.
	Columns map[Field][]string `json:"columns"`

	// RatingScale is the top of the source's rating scale.
	RatingScale float64 `json:"ratingScale"`

	// DefaultStatus applies to rows without a status column value.
	DefaultStatus Status `json:"defaultStatus,omitempty"`

	// WatchedStatus applies instead of DefaultStatus to rows that carry a
	// rating or a watched date. Empty disables the inference.
	WatchedStatus Status `json:"watchedStatus,omitempty"`

	// MediaKinds maps source-specific kind values (lowercased) to media kinds.
	MediaKinds map[string]MediaKind `json:"-"`
}

var (
	sources   = make(map[string]SourceDefinition)
	sourcesMu sync.RWMutex
)

// RegisterSource adds a source definition to the registry.
// Panics if a source with the same key is already registered.
func RegisterSource(def SourceDefinition) {
	sourcesMu.Lock()
	defer sourcesMu.Unlock()

	if _, exists := sources[def.Key]; exists {
		panic(fmt.Sprintf("source already registered: %s", def.Key))
	}
	if def.RatingScale <= 0 {
		def.RatingScale = DefaultRatingScale
	}
	if def.DefaultStatus == "" {
		def.DefaultStatus = StatusPlanToWatch
	}

	sources[def.Key] = def
}

// GetSource returns a source definition by key.
func GetSource(key string) (SourceDefinition, bool) {
	sourcesMu.RLock()
	defer sourcesMu.RUnlock()

	def, ok := sources[key]
	return def, ok
}

// LookupSource is GetSource with an error for unknown keys.
func LookupSource(key string) (SourceDefinition, error) {
	def, ok := GetSource(key)
	if !ok {
		return SourceDefinition{}, fmt.Errorf("%w: %q", ErrUnknownSource, key)
	}
	return def, nil
}

// Sources returns all registered sources sorted by key.
func Sources() []SourceDefinition {
	sourcesMu.RLock()
	defer sourcesMu.RUnlock()

	result := make([]SourceDefinition, 0, len(sources))
	for _, def := range sources {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}

// ClearSources removes all registered sources.
// Primarily useful for testing.
func ClearSources() {
	sourcesMu.Lock()
	defer sourcesMu.Unlock()
	sources = make(map[string]SourceDefinition)
}
