package query

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vmops/snapfleet/internal/filter"
	"github.com/vmops/snapfleet/internal/forest"
	"github.com/vmops/snapfleet/internal/models"
)

var _ = Describe("Compile", func() {
	var (
		nightly  filter.SnapshotView
		patching filter.SnapshotView
	)

	BeforeEach(func() {
		nightly = filter.SnapshotView{
			Hostname: "vc01.example.com",
			VMID:     "vm-10",
			VMName:   "prod-web01",
			Snapshot: models.Snapshot{
				ID:          "snap-1",
				VMID:        "vm-10",
				Name:        "nightly",
				Description: "Created by: alice",
				CreatedAt:   time.Date(2026, 2, 27, 9, 30, 0, 0, time.UTC),
				CreatedBy:   "alice",
				Memory:      false,
			},
			Kind:            forest.KindHasChildren,
			ChainProtected:  true,
			AgeBusinessDays: 6,
			AgeCalendarDays: 10,
		}
		patching = filter.SnapshotView{
			Hostname: "vc02.example.com",
			VMID:     "vm-20",
			VMName:   "test-db01",
			Snapshot: models.Snapshot{
				ID:          "snap-2",
				VMID:        "vm-20",
				Name:        "patching",
				Description: "Created by: bob",
				CreatedAt:   time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC),
				CreatedBy:   "bob",
				Memory:      true,
			},
			Kind:            forest.KindIndependent,
			ChainProtected:  false,
			AgeBusinessDays: 1,
			AgeCalendarDays: 3,
		}
	})

	Context("Matching", func() {
		type testCase struct {
			query           string
			matchesNightly  bool
			matchesPatching bool
		}

		tests := []testCase{
			// String fields
			{query: "vm = 'prod-web01'", matchesNightly: true, matchesPatching: false},
			{query: "vm = 'PROD-WEB01'", matchesNightly: true, matchesPatching: false},
			{query: "vm != 'prod-web01'", matchesNightly: false, matchesPatching: true},
			{query: "name = 'patching'", matchesNightly: false, matchesPatching: true},
			{query: "snapshot = 'patching'", matchesNightly: false, matchesPatching: true},
			{query: "creator = 'alice'", matchesNightly: true, matchesPatching: false},
			{query: "created_by = 'bob'", matchesNightly: false, matchesPatching: true},
			{query: "hostname = 'vc01.example.com'", matchesNightly: true, matchesPatching: false},
			{query: "kind = 'independent'", matchesNightly: false, matchesPatching: true},
			{query: "kind = 'has-children'", matchesNightly: true, matchesPatching: false},
			{query: "id = 'snap-1'", matchesNightly: true, matchesPatching: false},
			{query: "vm_id = 'vm-20'", matchesNightly: false, matchesPatching: true},

			// Regex
			{query: "vm ~ /^prod-/", matchesNightly: true, matchesPatching: false},
			{query: "vm !~ /^prod-/", matchesNightly: false, matchesPatching: true},
			{query: "description ~ /alice/", matchesNightly: true, matchesPatching: false},

			// Booleans
			{query: "chain_protected = true", matchesNightly: true, matchesPatching: false},
			{query: "chain_protected = false", matchesNightly: false, matchesPatching: true},
			{query: "memory = true", matchesNightly: false, matchesPatching: true},
			{query: "memory != true", matchesNightly: true, matchesPatching: false},

			// Ages, with and without units
			{query: "age > 5", matchesNightly: true, matchesPatching: false},
			{query: "age >= 1", matchesNightly: true, matchesPatching: true},
			{query: "age < 2d", matchesNightly: false, matchesPatching: true},
			{query: "age_calendar > 1w", matchesNightly: true, matchesPatching: false},
			{query: "age_calendar <= 3", matchesNightly: false, matchesPatching: true},
			{query: "age = 6", matchesNightly: true, matchesPatching: false},

			// Dates
			{query: "created < '2026-03-01'", matchesNightly: true, matchesPatching: false},
			{query: "created >= '2026-03-01'", matchesNightly: false, matchesPatching: true},
			{query: "created = '2026-03-06'", matchesNightly: false, matchesPatching: true},
			{query: "created != '2026-03-06'", matchesNightly: true, matchesPatching: false},
			{query: "created <= '2026-02-27'", matchesNightly: true, matchesPatching: false},

			// Boolean combinations
			{query: "creator = 'alice' and memory = true", matchesNightly: false, matchesPatching: false},
			{query: "creator = 'alice' or memory = true", matchesNightly: true, matchesPatching: true},
			{query: "age > 3 and chain_protected = true", matchesNightly: true, matchesPatching: false},
			{query: "(creator = 'bob' or creator = 'alice') and age < 2", matchesNightly: false, matchesPatching: true},
			{query: "vm ~ /web/ or vm ~ /db/", matchesNightly: true, matchesPatching: true},
		}

		for _, test := range tests {
			test := test // capture range variable
			It("should evaluate: "+test.query, func() {
				q, err := Compile([]byte(test.query))
				Expect(err).ToNot(HaveOccurred())
				Expect(q.Match(nightly)).To(Equal(test.matchesNightly))
				Expect(q.Match(patching)).To(Equal(test.matchesPatching))
			})
		}
	})

	Context("Binding errors", func() {
		type testCase struct {
			query   string
			message string
		}

		tests := []testCase{
			{query: "cpu > 4", message: `unknown field "cpu"`},
			{query: "vm.host.name = 'test'", message: `unknown field "vm.host.name"`},
			{query: "vm > 'abc'", message: "does not support"},
			{query: "vm = 10", message: "expects a string or regex value"},
			{query: "age = 'ten'", message: "expects a numeric value"},
			{query: "age ~ /10/", message: "expects a numeric value"},
			{query: "memory = 'yes'", message: "expects a boolean value"},
			{query: "memory > true", message: "does not support"},
			{query: "created = 'March 6'", message: "expects a 'YYYY-MM-DD' value"},
			{query: "created = 7", message: "expects a 'YYYY-MM-DD' value"},
		}

		for _, test := range tests {
			test := test
			It("should reject: "+test.query, func() {
				_, err := Compile([]byte(test.query))
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring(test.message))
			})
		}
	})

	Context("Case insensitive field names", func() {
		It("should resolve fields regardless of case", func() {
			q, err := Compile([]byte("VM = 'prod-web01' and Age > 5"))
			Expect(err).ToNot(HaveOccurred())
			Expect(q.Match(nightly)).To(BeTrue())
		})
	})
})
