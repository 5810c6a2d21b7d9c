// Package catalog holds the static resource tables for Healora: coping strategies
// by mood, crisis resources by region, and the therapist directory.
//
// The tables are read-only after construction. The only mutable piece is the
// random source used to pick a coping strategy, which is guarded so a single
// Catalog can be shared by every session.
package catalog

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/BTreeMap/Healora/internal/models"
)

var copingStrategies = map[models.Mood][]string{
	models.MoodHappy: {
		"Keep the positivity flowing! Try writing down three things you're grateful for today.",
		"Share your joy! Call a friend or loved one to spread the good vibes.",
	},
	models.MoodSad: {
		"It's okay to feel this way. Try a gentle activity like listening to calming music or taking a short walk.",
		"Write down your thoughts in a journal to process what's on your mind.",
	},
	models.MoodAnxious: {
		"Take slow, deep breaths: inhale for 4 seconds, hold for 4, exhale for 4.",
		"Try a grounding exercise: name 5 things you see, 4 you can touch, 3 you hear, 2 you smell, 1 you taste.",
	},
	models.MoodStressed: {
		"Pause for a moment and stretch your body to release tension.",
		"Break tasks into smaller steps and tackle one at a time.",
	},
	models.MoodOther: {
		"Reflect on what's on your mind with a quick mindfulness moment: focus on your breath for 60 seconds.",
		"Engage in a favorite hobby to lift your spirits.",
	},
}

var regionalResources = map[models.Region][]string{
	models.RegionUSA: {
		"National Suicide Prevention Lifeline: 1-800-273-8255",
		"Crisis Text Line: Text HOME to 741741",
		"[MentalHealth.gov](https://www.mentalhealth.gov/)",
	},
	models.RegionIndia: {
		"Vandrevala Foundation: 1860-2662-345",
		"AASRA Suicide Prevention: +91-9820466726",
		"[iCall Helpline](https://icallhelpline.org/)",
	},
	models.RegionUK: {
		"Samaritans: 116 123",
		"Shout Crisis Text Line: Text SHOUT to 85258",
		"[Mind UK](https://www.mind.org.uk/)",
	},
	models.RegionGlobal: {
		"Befrienders Worldwide: [Find a helpline](https://befrienders.org/)",
		"[WHO Mental Health Resources](https://www.who.int/health-topics/mental-health)",
	},
}

var therapists = map[string]models.Therapist{
	"Dr. Jane Smith": {
		Name:           "Dr. Jane Smith",
		Specialty:      "Anxiety and Depression",
		ContactEmail:   "jane.smith@example.com",
		AvailableSlots: []string{"09:00", "11:00", "14:00", "16:00"},
	},
	"Dr. Amit Patel": {
		Name:           "Dr. Amit Patel",
		Specialty:      "Stress Management",
		ContactEmail:   "amit.patel@example.com",
		AvailableSlots: []string{"10:00", "12:00", "15:00", "17:00"},
	},
	"Dr. Sarah Brown": {
		Name:           "Dr. Sarah Brown",
		Specialty:      "Trauma and PTSD",
		ContactEmail:   "sarah.brown@example.com",
		AvailableSlots: []string{"08:00", "13:00", "15:30", "18:00"},
	},
}

// Opts holds configuration options for a Catalog.
type Opts struct {
	Rand *rand.Rand
}

// Option defines a configuration option for a Catalog.
type Option func(*Opts)

// WithRand injects the random source used by CopingFor. Tests pass a seeded source.
func WithRand(r *rand.Rand) Option {
	return func(o *Opts) {
		o.Rand = r
	}
}

// Catalog serves lookups over the static tables.
type Catalog struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a Catalog, applying any provided options.
func New(opts ...Option) *Catalog {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Catalog{rng: cfg.Rand}
}

// CopingStrategies returns the configured list for mood, falling back to the "other" bucket.
func CopingStrategies(mood models.Mood) []string {
	if list, ok := copingStrategies[models.Mood(strings.ToLower(string(mood)))]; ok {
		return list
	}
	return copingStrategies[models.MoodOther]
}

// CopingFor returns one pseudo-randomly chosen strategy for mood.
func (c *Catalog) CopingFor(mood models.Mood) string {
	list := CopingStrategies(mood)
	c.mu.Lock()
	i := c.rng.IntN(len(list))
	c.mu.Unlock()
	return list[i]
}

// ResolveRegion maps a raw region key onto a configured region, falling back to Global.
// Matching is case-insensitive.
func ResolveRegion(raw string) models.Region {
	raw = strings.TrimSpace(raw)
	for region := range regionalResources {
		if strings.EqualFold(string(region), raw) {
			return region
		}
	}
	return models.RegionGlobal
}

// ResourcesFor returns the ordered resource list for region, or the Global list.
func (c *Catalog) ResourcesFor(region models.Region) []string {
	list := regionalResources[ResolveRegion(string(region))]
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// EmergencyResources renders the crisis-support block shown by the emergency resources button.
func (c *Catalog) EmergencyResources(region models.Region) string {
	resolved := ResolveRegion(string(region))
	return "**Crisis Support (" + string(resolved) + ")**:\n" + strings.Join(regionalResources[resolved], "\n")
}

// Regions lists the configured region keys in sorted order.
func (c *Catalog) Regions() []models.Region {
	out := make([]models.Region, 0, len(regionalResources))
	for r := range regionalResources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Therapist looks up a directory entry by id.
func (c *Catalog) Therapist(id string) (models.Therapist, bool) {
	t, ok := therapists[strings.TrimSpace(id)]
	if !ok {
		return models.Therapist{}, false
	}
	t.AvailableSlots = append([]string(nil), t.AvailableSlots...)
	return t, true
}

// Therapists returns the whole directory sorted by name.
func (c *Catalog) Therapists() []models.Therapist {
	out := make([]models.Therapist, 0, len(therapists))
	for id := range therapists {
		t, _ := c.Therapist(id)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TherapistDetails renders the directory entry for id, or a prompt to pick one when id is unknown.
func (c *Catalog) TherapistDetails(id string) (string, bool) {
	t, ok := c.Therapist(id)
	if !ok {
		return "Please select a therapist.", false
	}
	return fmt.Sprintf("**Therapist Details**:\n- Name: %s\n- Specialty: %s\n- Email: %s", t.Name, t.Specialty, t.ContactEmail), true
}
