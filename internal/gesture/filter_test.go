package gesture_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/shape"
)

// feed observes every value and returns the commits in order.
func feed(f *gesture.Filter, current shape.Kind, values ...int) []shape.Kind {
	var commits []shape.Kind
	for _, v := range values {
		if next, ok := f.Observe(v, current); ok {
			commits = append(commits, next)
			current = next
		}
	}
	return commits
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

var _ = Describe("Filter", func() {
	var f *gesture.Filter

	BeforeEach(func() {
		f = gesture.NewDefaultFilter()
	})

	It("commits Saturn once for 13 threes followed by 2 twos", func() {
		values := append(repeat(3, 13), 2, 2)
		Expect(feed(f, shape.Sphere, values...)).To(Equal([]shape.Kind{shape.Saturn}))
	})

	It("clears the window on commit", func() {
		feed(f, shape.Sphere, repeat(3, 13)...)
		Expect(f.Window()).To(BeEmpty())
	})

	It("does not trigger on exactly 12 of 15", func() {
		values := append(repeat(4, 12), 1, 1, 1)
		Expect(feed(f, shape.Sphere, values...)).To(BeEmpty())
		Expect(f.Window()).To(HaveLen(gesture.DefaultCapacity))
	})

	It("does not commit while twos hold at most twelve of fifteen", func() {
		Expect(feed(f, shape.Sphere, repeat(3, 13)...)).To(Equal([]shape.Kind{shape.Saturn}))

		// every run of fifteen holds exactly twelve twos
		var mixed []int
		for range 8 {
			mixed = append(mixed, 2, 2, 2, 2, 3)
		}
		Expect(feed(f, shape.Saturn, mixed...)).To(BeEmpty())
		Expect(f.Window()).To(HaveLen(gesture.DefaultCapacity))
	})

	It("commits once twos reach thirteen of fifteen", func() {
		mixed := []int{2, 2, 2, 2, 3, 2, 2, 2, 2, 3, 2, 2, 2, 2, 3}
		Expect(feed(f, shape.Saturn, mixed...)).To(BeEmpty())
		// the first three pushes evict twos, the fourth evicts a three
		Expect(feed(f, shape.Saturn, 2, 2, 2)).To(BeEmpty())
		Expect(feed(f, shape.Saturn, 2)).To(Equal([]shape.Kind{shape.Flower}))
	})

	It("ignores consensus on the current shape", func() {
		Expect(feed(f, shape.Heart, repeat(4, 30)...)).To(BeEmpty())
	})

	DescribeTable("ignores unmapped counts",
		func(fingers int) {
			Expect(feed(f, shape.Sphere, repeat(fingers, 30)...)).To(BeEmpty())
		},
		Entry("fist", 0),
		Entry("one finger", 1),
	)

	DescribeTable("maps finger counts to shapes",
		func(fingers int, want shape.Kind) {
			Expect(feed(f, shape.Sphere, repeat(fingers, 13)...)).To(Equal([]shape.Kind{want}))
		},
		Entry("two", 2, shape.Flower),
		Entry("three", 3, shape.Saturn),
		Entry("four", 4, shape.Heart),
		Entry("five", 5, shape.Fireworks),
	)

	It("evicts oldest observations first", func() {
		values := append(repeat(2, 10), repeat(5, 15)...)
		commits := feed(f, shape.Sphere, values...)
		Expect(commits).To(Equal([]shape.Kind{shape.Fireworks}))
	})

	It("clamps out-of-range counts", func() {
		Expect(feed(f, shape.Sphere, repeat(9, 13)...)).To(Equal([]shape.Kind{shape.Fireworks}))
		Expect(feed(f, shape.Sphere, repeat(-3, 13)...)).To(BeEmpty())
	})

	It("switches again after a fresh consensus", func() {
		values := append(repeat(2, 13), repeat(4, 13)...)
		Expect(feed(f, shape.Sphere, values...)).To(Equal([]shape.Kind{shape.Flower, shape.Heart}))
	})
})

var _ = Describe("Window", func() {
	It("keeps insertion order and capacity", func() {
		w := gesture.NewWindow(3)
		for _, v := range []int{1, 2, 3, 4} {
			w.Push(v)
		}
		Expect(w.Len()).To(Equal(3))
		Expect(w.Slice()).To(Equal([]int{2, 3, 4}))
	})

	It("reports the mode", func() {
		w := gesture.NewWindow(5)
		for _, v := range []int{3, 1, 3, 2, 3} {
			w.Push(v)
		}
		value, count := w.Mode()
		Expect(value).To(Equal(3))
		Expect(count).To(Equal(3))
	})

	It("empties on reset", func() {
		w := gesture.NewWindow(4)
		w.Push(1)
		w.Reset()
		Expect(w.Len()).To(BeZero())
		Expect(w.Slice()).To(BeEmpty())
	})
})
