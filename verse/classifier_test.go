package verse

import "testing"

func TestClassifyGroupsEquivalentTitles(t *testing.T) {
	a := Classify("Will Bitcoin be above $50000 by end of year?")
	b := Classify("Bitcoin above $50000 EOY?")

	if a != b {
		t.Fatalf("expected equivalent titles to classify to the same verse, got %s vs %s", a, b)
	}
}

func TestClassifyDistinguishesDifferentTopics(t *testing.T) {
	btc := Classify("Will Bitcoin be above $50,000?")
	eth := Classify("Will Ethereum be above $3,000?")

	if btc == eth {
		t.Fatalf("expected different topics to classify to different verses")
	}
}

func TestClassifyDeterministic(t *testing.T) {
	title := "Will the 2028 presidential election winner be a Democrat?"
	a := Classify(title)
	b := Classify(title)
	if a != b {
		t.Fatalf("expected classification to be deterministic")
	}
}
