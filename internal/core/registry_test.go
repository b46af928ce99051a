package core

import (
	"errors"
	"testing"
)

func TestSourceRegistry(t *testing.T) {
	ClearSources()
	t.Cleanup(ClearSources)

	RegisterSource(SourceDefinition{Key: "b", Columns: map[Field][]string{FieldTitle: {"title"}}})
	RegisterSource(SourceDefinition{Key: "a", Columns: map[Field][]string{FieldTitle: {"name"}}, RatingScale: 5})

	b, ok := GetSource("b")
	if !ok {
		t.Fatal("source b not found")
	}
	if b.RatingScale != DefaultRatingScale || b.DefaultStatus != StatusPlanToWatch {
		t.Errorf("defaults not applied: %+v", b)
	}

	all := Sources()
	if len(all) != 2 || all[0].Key != "a" || all[1].Key != "b" {
		t.Errorf("Sources() = %+v, want a then b", all)
	}

	if _, err := LookupSource("missing"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("LookupSource(missing) err = %v, want ErrUnknownSource", err)
	}
	if a, err := LookupSource("a"); err != nil || a.RatingScale != 5 {
		t.Errorf("LookupSource(a) = %+v, %v", a, err)
	}
}

func TestRegisterSource_DuplicatePanics(t *testing.T) {
	ClearSources()
	t.Cleanup(ClearSources)

	RegisterSource(SourceDefinition{Key: "dup"})

	defer func() {
		if recover() == nil {
			t.Error("registering a duplicate key should panic")
		}
	}()
	RegisterSource(SourceDefinition{Key: "dup"})
}
