package botkit

import (
	"errors"
	"testing"
)

func TestParseJSON(t *testing.T) {
	type args struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	got, err := ParseJSON[args](` {"name": "HN", "url": "https://hnrss.org/frontpage"} `)
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if got.Name != "HN" || got.URL != "https://hnrss.org/frontpage" {
		t.Errorf("unexpected args %+v", got)
	}

	if _, err := ParseJSON[args](""); !errors.Is(err, ErrNoArguments) {
		t.Errorf("expected ErrNoArguments, got %v", err)
	}
	if _, err := ParseJSON[args]("{not json"); err == nil {
		t.Error("expected a decode error")
	}
}
