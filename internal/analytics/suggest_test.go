package analytics

import (
	"reflect"
	"testing"
)

func TestSuggestTagsFiltersCaseInsensitive(t *testing.T) {
	vocab := []string{"work", "phone call", "driving", "social gathering"}

	got := SuggestTags("PHONE", vocab, nil)
	if !reflect.DeepEqual(got, []string{"phone call"}) {
		t.Errorf("expected [phone call], got %v", got)
	}

	got = SuggestTags("in", vocab, nil)
	if !reflect.DeepEqual(got, []string{"driving", "social gathering"}) {
		t.Errorf("expected substring matches in vocabulary order, got %v", got)
	}

	if got := SuggestTags("zzz", vocab, nil); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestSuggestTagsEmptyQueryRanksByUsage(t *testing.T) {
	vocab := []string{"alone", "work", "driving"}
	usage := []TagCount{
		{Tag: "driving", Count: 4},
		{Tag: "work", Count: 2},
	}

	got := SuggestTags("", vocab, usage)
	if !reflect.DeepEqual(got, []string{"driving", "work", "alone"}) {
		t.Errorf("expected usage-ranked order, got %v", got)
	}
}

func TestSuggestTagsTieKeepsVocabularyOrder(t *testing.T) {
	vocab := []string{"alone", "work", "driving"}

	got := SuggestTags("", vocab, nil)
	if !reflect.DeepEqual(got, vocab) {
		t.Errorf("unused tags must keep vocabulary order, got %v", got)
	}
}
