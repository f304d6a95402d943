package forest_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/vmops/snapfleet/internal/forest"
	"github.com/vmops/snapfleet/internal/models"
	srvErrors "github.com/vmops/snapfleet/pkg/errors"
)

func snap(id, parentID string, created time.Time) models.Snapshot {
	return models.Snapshot{
		ID:        id,
		VMID:      "vm-1",
		Name:      "snap " + id,
		CreatedAt: created,
		ParentID:  parentID,
	}
}

var _ = Describe("Build", func() {
	var t0 time.Time

	BeforeEach(func() {
		t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	})

	Context("with a linear chain", func() {
		// Given a -> b -> c
		// Then a and b are chain protected, c is not
		It("should protect every node with a child", func() {
			f, err := forest.Build("vm-1", []models.Snapshot{
				snap("c", "b", t0.Add(2*time.Hour)),
				snap("a", "", t0),
				snap("b", "a", t0.Add(time.Hour)),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Len()).To(Equal(3))
			Expect(f.Roots).To(HaveLen(1))

			a, ok := f.Node("a")
			Expect(ok).To(BeTrue())
			Expect(a.ChainProtected).To(BeTrue())
			Expect(a.Kind()).To(Equal(forest.KindHasChildren))

			b, _ := f.Node("b")
			Expect(b.ChainProtected).To(BeTrue())
			Expect(b.Kind()).To(Equal(forest.KindMiddle))

			c, _ := f.Node("c")
			Expect(c.ChainProtected).To(BeFalse())
			Expect(c.Kind()).To(Equal(forest.KindChild))
		})
	})

	Context("with independent snapshots", func() {
		It("should build one root per snapshot, none protected", func() {
			f, err := forest.Build("vm-1", []models.Snapshot{
				snap("a", "", t0),
				snap("b", "", t0.Add(time.Hour)),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Roots).To(HaveLen(2))
			for _, r := range f.Roots {
				Expect(r.ChainProtected).To(BeFalse())
				Expect(r.Kind()).To(Equal(forest.KindIndependent))
			}
		})
	})

	Context("with an unknown parent id", func() {
		// Stale inventory can reference a parent that is gone; the
		// orphan is kept as a root rather than dropped.
		It("should treat the orphan as a root", func() {
			f, err := forest.Build("vm-1", []models.Snapshot{
				snap("a", "gone", t0),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Roots).To(HaveLen(1))
			Expect(f.Roots[0].Snapshot.ID).To(Equal("a"))
			Expect(f.Roots[0].Parent).To(BeNil())
		})
	})

	Context("determinism", func() {
		It("should yield the same shape regardless of input order", func() {
			input := []models.Snapshot{
				snap("root", "", t0),
				snap("old-child", "root", t0.Add(time.Hour)),
				snap("new-child", "root", t0.Add(2*time.Hour)),
				snap("leaf", "old-child", t0.Add(3*time.Hour)),
			}
			permuted := []models.Snapshot{input[3], input[1], input[0], input[2]}

			f1, err := forest.Build("vm-1", input)
			Expect(err).NotTo(HaveOccurred())
			f2, err := forest.Build("vm-1", permuted)
			Expect(err).NotTo(HaveOccurred())

			var order1, order2 []string
			var flags1, flags2 []bool
			f1.Walk(func(n *forest.Node) {
				order1 = append(order1, n.Snapshot.ID)
				flags1 = append(flags1, n.ChainProtected)
			})
			f2.Walk(func(n *forest.Node) {
				order2 = append(order2, n.Snapshot.ID)
				flags2 = append(flags2, n.ChainProtected)
			})

			Expect(order1).To(Equal(order2))
			Expect(flags1).To(Equal(flags2))
			Expect(order1).To(Equal([]string{"root", "old-child", "leaf", "new-child"}))
		})

		It("should preserve the input node count", func() {
			input := []models.Snapshot{
				snap("a", "", t0),
				snap("b", "a", t0),
				snap("c", "a", t0),
				snap("d", "c", t0),
				snap("e", "", t0),
			}
			f, err := forest.Build("vm-1", input)
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Len()).To(Equal(len(input)))

			count := 0
			f.Walk(func(*forest.Node) { count++ })
			Expect(count).To(Equal(len(input)))
		})
	})

	Context("with malformed inventory", func() {
		It("should reject a two-node cycle in bounded time", func() {
			done := make(chan error, 1)
			go func() {
				_, err := forest.Build("vm-1", []models.Snapshot{
					snap("a", "b", t0),
					snap("b", "a", t0),
				})
				done <- err
			}()

			var err error
			Eventually(done, 2*time.Second).Should(Receive(&err))
			Expect(srvErrors.IsMalformedInventoryError(err)).To(BeTrue())
		})

		It("should reject a self-parent", func() {
			_, err := forest.Build("vm-1", []models.Snapshot{
				snap("a", "a", t0),
			})
			Expect(srvErrors.IsMalformedInventoryError(err)).To(BeTrue())
		})

		It("should reject duplicate ids", func() {
			_, err := forest.Build("vm-1", []models.Snapshot{
				snap("a", "", t0),
				snap("a", "", t0),
			})
			Expect(srvErrors.IsMalformedInventoryError(err)).To(BeTrue())
		})

		It("should reject a cycle hanging off a valid tree", func() {
			_, err := forest.Build("vm-1", []models.Snapshot{
				snap("root", "", t0),
				snap("x", "y", t0),
				snap("y", "x", t0),
			})
			Expect(srvErrors.IsMalformedInventoryError(err)).To(BeTrue())
		})
	})
})
