package model

import "testing"

func TestProfileNormalize(t *testing.T) {
	p := (&Profile{ID: "u-1"}).Normalize()

	if p.TechStack == nil || len(p.TechStack) != 0 {
		t.Errorf("TechStack = %v, want empty slice", p.TechStack)
	}
	if p.GitHubRepos == nil || len(p.GitHubRepos) != 0 {
		t.Errorf("GitHubRepos = %v, want empty slice", p.GitHubRepos)
	}
	if p.Rank != DefaultRank {
		t.Errorf("Rank = %q, want %q", p.Rank, DefaultRank)
	}

	p = (&Profile{Rank: "Staff", TechStack: []string{"Go"}}).Normalize()
	if p.Rank != "Staff" || len(p.TechStack) != 1 {
		t.Errorf("Normalize() overwrote set fields: %+v", p)
	}
}

func TestProfileUpdateFields(t *testing.T) {
	empty := ProfileUpdate{}
	if !empty.IsEmpty() {
		t.Error("IsEmpty() = false for zero update")
	}

	bio := "compilers"
	lat := 51.5
	stack := []string{"Go"}
	u := ProfileUpdate{Bio: &bio, LocationLat: &lat, TechStack: &stack}

	fields := u.Fields()
	if u.IsEmpty() {
		t.Error("IsEmpty() = true, want false")
	}
	if len(fields) != 3 {
		t.Fatalf("Fields() = %v, want 3 entries", fields)
	}
	if fields["bio"] != "compilers" || fields["location_lat"] != 51.5 {
		t.Errorf("Fields() = %v", fields)
	}
	if _, ok := fields["display_name"]; ok {
		t.Error("nil display_name must be dropped")
	}
}
