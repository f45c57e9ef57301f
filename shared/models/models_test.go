package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAreaList(t *testing.T) {
	t.Run("round trips all three variants", func(t *testing.T) {
		coords, _ := json.Marshal([][][]float64{{{36.8, -1.3}, {36.9, -1.3}, {36.9, -1.2}, {36.8, -1.3}}})
		original := AreaList{
			GeocodeArea{AreaDesc: "Mombasa county", ValueName: "ADM1", Value: "KE-28"},
			PolygonArea{AreaDesc: "Coastal strip", Geometry: Geometry{Type: "Polygon", Coordinates: coords}},
			CircleArea{AreaDesc: "Harbor zone", Lat: -1.25, Lon: 36.85, RadiusKm: 5},
		}

		encoded, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		var decoded AreaList
		if err := json.Unmarshal(encoded, &decoded); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		if len(decoded) != 3 {
			t.Fatalf("expected 3 areas, got %d", len(decoded))
		}

		geocode, ok := decoded[0].(GeocodeArea)
		if !ok || geocode.Value != "KE-28" {
			t.Fatalf("expected geocode area, got %T %+v", decoded[0], decoded[0])
		}
		if _, ok := decoded[1].(PolygonArea); !ok {
			t.Fatalf("expected polygon area, got %T", decoded[1])
		}
		circle, ok := decoded[2].(CircleArea)
		if !ok || circle.RadiusKm != 5 {
			t.Fatalf("expected circle area, got %T %+v", decoded[2], decoded[2])
		}
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		var decoded AreaList
		err := json.Unmarshal([]byte(`[{"kind":"hexagon","area":{}}]`), &decoded)
		if err == nil {
			t.Fatalf("expected error, got nil")
		}
	})
}

func TestAlertImmutable(t *testing.T) {
	cases := []struct {
		name      string
		status    string
		published bool
		want      bool
	}{
		{"published actual", StatusActual, true, true},
		{"draft actual", StatusActual, false, false},
		{"published test", StatusTest, true, false},
		{"published exercise", StatusExercise, true, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := Alert{Status: c.status, Published: c.published}
			if got := a.Immutable(); got != c.want {
				t.Fatalf("expected %t, got %t", c.want, got)
			}
		})
	}
}

func TestPubliclyDistributable(t *testing.T) {
	base := Alert{Status: StatusActual, Scope: ScopePublic, Published: true}
	if !base.PubliclyDistributable() {
		t.Fatalf("expected published Actual Public to be distributable")
	}

	restricted := base
	restricted.Scope = ScopeRestricted
	if restricted.PubliclyDistributable() {
		t.Fatalf("expected restricted alert to be withheld")
	}

	test := base
	test.Status = StatusTest
	if test.PubliclyDistributable() {
		t.Fatalf("expected Test alert to be withheld")
	}
}

func TestMaxExpires(t *testing.T) {
	early := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	late := early.Add(6 * time.Hour)

	a := Alert{Infos: []AlertInfo{{Expires: &early}, {Expires: &late}, {}}}
	if got := a.MaxExpires(); !got.Equal(late) {
		t.Fatalf("expected %s, got %s", late, got)
	}

	none := Alert{Infos: []AlertInfo{{}, {}}}
	if !none.MaxExpires().IsZero() {
		t.Fatalf("expected zero time when no info carries an expiry")
	}
}

func TestDerivedStatus(t *testing.T) {
	sent := time.Date(2026, 3, 14, 6, 0, 0, 0, time.UTC)
	now := sent.Add(2 * time.Hour)

	t.Run("expired on an earlier day", func(t *testing.T) {
		expires := sent.AddDate(0, 0, -1)
		info := AlertInfo{Expires: &expires}
		if got := info.DerivedStatus(sent, now); got != InfoExpired {
			t.Fatalf("expected %s, got %s", InfoExpired, got)
		}
	})

	t.Run("still ongoing on the expiry day", func(t *testing.T) {
		expires := sent.Add(time.Hour)
		info := AlertInfo{Expires: &expires}
		if got := info.DerivedStatus(sent, now); got != InfoOngoing {
			t.Fatalf("expected %s, got %s", InfoOngoing, got)
		}
	})

	t.Run("ongoing falls back to sent when effective unset", func(t *testing.T) {
		info := AlertInfo{}
		if got := info.DerivedStatus(sent, now); got != InfoOngoing {
			t.Fatalf("expected %s, got %s", InfoOngoing, got)
		}
	})

	t.Run("expected before effective", func(t *testing.T) {
		effective := now.Add(time.Hour)
		info := AlertInfo{Effective: &effective}
		if got := info.DerivedStatus(sent, now); got != InfoExpected {
			t.Fatalf("expected %s, got %s", InfoExpected, got)
		}
	})
}

func TestPublicIdentifier(t *testing.T) {
	sent := time.Date(2026, 3, 14, 6, 30, 0, 0, time.UTC)
	a := Alert{Identifier: "internal-uuid", Sent: sent}

	t.Run("without oid", func(t *testing.T) {
		if got := a.PublicIdentifier(""); got != "internal-uuid" {
			t.Fatalf("expected raw identifier, got %s", got)
		}
	})

	t.Run("with oid", func(t *testing.T) {
		want := "urn:oid:2.49.0.0.404.0.2026.3.14.6.30.0"
		if got := a.PublicIdentifier("2.49.0.0.404.0"); got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	})
}

func TestColorForSeverity(t *testing.T) {
	if got := ColorForSeverity(SeverityExtreme).Fill; got != "#d72f2a" {
		t.Fatalf("expected extreme fill #d72f2a, got %s", got)
	}
	if got := ColorForSeverity("NotASeverity"); got != ColorForSeverity(SeverityUnknown) {
		t.Fatalf("expected unknown fallback, got %+v", got)
	}
}

func TestSeverityRank(t *testing.T) {
	if SeverityRank(SeverityExtreme) <= SeverityRank(SeveritySevere) {
		t.Fatalf("expected Extreme to outrank Severe")
	}
	if SeverityRank("NotASeverity") != SeverityRank(SeverityUnknown) {
		t.Fatalf("expected unranked severities to score as Unknown")
	}
}

func TestReferenceCAPString(t *testing.T) {
	ref := Reference{
		Sender:     "alerts@meteo.example.org",
		Identifier: "alert-000",
		Sent:       time.Date(2026, 3, 13, 7, 0, 0, 0, time.UTC),
	}
	want := "alerts@meteo.example.org,alert-000,2026-03-13T07:00:00Z"
	if got := ref.CAPString(); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestHeadlineFallback(t *testing.T) {
	a := Alert{Identifier: "id-1", Infos: []AlertInfo{{Event: "Dust Storm"}}}
	if got := a.Headline(); got != "Dust Storm" {
		t.Fatalf("expected event fallback, got %s", got)
	}

	a.Infos[0].Headline = "Severe dust storm approaching"
	if got := a.Headline(); got != "Severe dust storm approaching" {
		t.Fatalf("expected headline, got %s", got)
	}
}
