package catalog

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/BTreeMap/Healora/internal/models"
)

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCopingForRecognizedMoods(t *testing.T) {
	c := New(WithRand(rand.New(rand.NewPCG(1, 2))))
	moods := []models.Mood{models.MoodHappy, models.MoodSad, models.MoodAnxious, models.MoodStressed, models.MoodOther}

	for _, mood := range moods {
		t.Run(string(mood), func(t *testing.T) {
			for i := 0; i < 20; i++ {
				got := c.CopingFor(mood)
				if !contains(copingStrategies[mood], got) {
					t.Fatalf("CopingFor(%q) = %q, not in that mood's list", mood, got)
				}
			}
		})
	}
}

func TestCopingForUnrecognizedMoodUsesOther(t *testing.T) {
	c := New()
	for i := 0; i < 20; i++ {
		got := c.CopingFor(models.Mood("furious"))
		if !contains(copingStrategies[models.MoodOther], got) {
			t.Fatalf("CopingFor(unknown) = %q, want a string from the other bucket", got)
		}
	}
}

func TestCopingForIsCaseInsensitive(t *testing.T) {
	c := New()
	got := c.CopingFor(models.Mood("SAD"))
	if !contains(copingStrategies[models.MoodSad], got) {
		t.Errorf("CopingFor(SAD) = %q, want a sad strategy", got)
	}
}

func TestCopingForDeterministicWithSeed(t *testing.T) {
	a := New(WithRand(rand.New(rand.NewPCG(7, 7))))
	b := New(WithRand(rand.New(rand.NewPCG(7, 7))))
	for i := 0; i < 10; i++ {
		if x, y := a.CopingFor(models.MoodAnxious), b.CopingFor(models.MoodAnxious); x != y {
			t.Fatalf("same seed produced different picks: %q vs %q", x, y)
		}
	}
}

func TestResourcesForUnknownRegionIsGlobal(t *testing.T) {
	c := New()
	global := regionalResources[models.RegionGlobal]
	for _, region := range []models.Region{"", "Mars", "Canada", "Globalish"} {
		got := c.ResourcesFor(region)
		if len(got) != len(global) {
			t.Fatalf("ResourcesFor(%q) returned %d entries, want %d", region, len(got), len(global))
		}
		for i := range global {
			if got[i] != global[i] {
				t.Errorf("ResourcesFor(%q)[%d] = %q, want %q", region, i, got[i], global[i])
			}
		}
	}
}

func TestResourcesForKnownRegion(t *testing.T) {
	c := New()
	got := c.ResourcesFor("uk")
	if len(got) == 0 || got[0] != "Samaritans: 116 123" {
		t.Errorf("ResourcesFor(uk) = %v, want UK list", got)
	}
	got[0] = "mutated"
	if regionalResources[models.RegionUK][0] == "mutated" {
		t.Error("ResourcesFor() leaked the underlying table")
	}
}

func TestEmergencyResources(t *testing.T) {
	c := New()
	got := c.EmergencyResources("Atlantis")
	if !strings.HasPrefix(got, "**Crisis Support (Global)**:\n") {
		t.Errorf("EmergencyResources() = %q, want Global heading", got)
	}
}

func TestTherapistLookup(t *testing.T) {
	c := New()
	th, ok := c.Therapist("Dr. Jane Smith")
	if !ok {
		t.Fatal("expected Dr. Jane Smith to exist")
	}
	if th.ContactEmail != "jane.smith@example.com" || !th.HasSlot("09:00") {
		t.Errorf("unexpected therapist record: %+v", th)
	}
	if _, ok := c.Therapist("Dr. Nobody"); ok {
		t.Error("expected lookup miss for unknown therapist")
	}
	if got := c.Therapists(); len(got) != 3 || got[0].Name != "Dr. Amit Patel" {
		t.Errorf("Therapists() = %v, want 3 entries sorted by name", got)
	}
}

func TestTherapistDetails(t *testing.T) {
	c := New()
	got, ok := c.TherapistDetails("Dr. Sarah Brown")
	if !ok {
		t.Fatal("expected details for a known therapist")
	}
	for _, want := range []string{"**Therapist Details**", "Trauma and PTSD", "sarah.brown@example.com"} {
		if !strings.Contains(got, want) {
			t.Errorf("details missing %q: %s", want, got)
		}
	}
	if got, ok := c.TherapistDetails(""); ok || got != "Please select a therapist." {
		t.Errorf("TherapistDetails(\"\") = %q, %v", got, ok)
	}
}
