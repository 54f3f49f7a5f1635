package model

import "testing"

func TestNormalizeFillsMissingCollections(t *testing.T) {
	doc := Document{Users: []Profile{{
		ID:       1,
		Username: "a",
		Posts:    []Post{{ID: 1, Message: "m"}},
	}}}
	doc.Normalize()

	p := doc.Users[0]
	if p.Following == nil || p.Followers == nil {
		t.Fatalf("follow lists left nil: %+v", p)
	}
	if p.Posts[0].Hashtags == nil {
		t.Fatalf("hashtags left nil")
	}
	if p.Notifications != nil {
		t.Fatalf("notifications should stay omitted")
	}

	var empty Document
	empty.Normalize()
	if empty.Users == nil || len(empty.Users) != 0 {
		t.Fatalf("expected empty users, got %v", empty.Users)
	}
}

func TestProfileLookupAfterAdd(t *testing.T) {
	doc := NewDocument()
	if !doc.AddProfile(Profile{ID: 1, Username: "a"}) {
		t.Fatalf("first add rejected")
	}
	if doc.AddProfile(Profile{ID: 2, Username: "a"}) {
		t.Fatalf("duplicate username accepted")
	}
	if p := doc.Profile("a"); p == nil || p.ID != 1 {
		t.Fatalf("lookup failed: %+v", p)
	}
	if doc.Profile("missing") != nil {
		t.Fatalf("expected nil for unknown username")
	}
}
