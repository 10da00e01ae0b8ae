package dataset

import (
	"errors"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/aeropinn/internal/aero"
)

func indexed(n int) []aero.FlowSample {
	samples := make([]aero.FlowSample, n)
	for i := range samples {
		samples[i] = aero.FlowSample{X: float64(i)}
	}
	return samples
}

func keys(samples []aero.FlowSample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.X
	}
	return out
}

var _ = Describe("Split", func() {
	It("partitions 100 samples into 80/20", func() {
		p, err := Split(indexed(100), 0.2, SplitOptions{Shuffle: true, Seed: 7})
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Train).To(HaveLen(80))
		Expect(p.Validation).To(HaveLen(20))
	})

	It("covers every sample exactly once", func() {
		for _, n := range []int{2, 3, 17, 100, 1001} {
			p, err := Split(indexed(n), 0.3, SplitOptions{Shuffle: true, Seed: int64(n)})
			Expect(err).NotTo(HaveOccurred())
			Expect(len(p.Train) + len(p.Validation)).To(Equal(n))

			seen := map[float64]int{}
			for _, s := range append(append([]aero.FlowSample{}, p.Train...), p.Validation...) {
				seen[s.X]++
			}
			Expect(seen).To(HaveLen(n))
			for _, c := range seen {
				Expect(c).To(Equal(1))
			}
		}
	})

	It("reproduces the partition for the same seed", func() {
		a, err := Split(indexed(50), 0.2, SplitOptions{Shuffle: true, Seed: 42})
		Expect(err).NotTo(HaveOccurred())
		b, err := Split(indexed(50), 0.2, SplitOptions{Shuffle: true, Seed: 42})
		Expect(err).NotTo(HaveOccurred())
		Expect(keys(a.Train)).To(Equal(keys(b.Train)))
		Expect(keys(a.Validation)).To(Equal(keys(b.Validation)))
	})

	It("keeps input order when not shuffling", func() {
		p, err := Split(indexed(10), 0.2, SplitOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(keys(p.Train)).To(Equal([]float64{0, 1, 2, 3, 4, 5, 6, 7}))
		Expect(keys(p.Validation)).To(Equal([]float64{8, 9}))
	})

	It("rounds the training size", func() {
		Expect(TrainSize(10, 0.25)).To(Equal(8))
		Expect(TrainSize(7, 0.5)).To(Equal(4))
	})

	DescribeTable("rejects unusable inputs",
		func(n int, f float64, insufficient bool) {
			_, err := Split(indexed(n), f, SplitOptions{})
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, aero.ErrInsufficientData)).To(Equal(insufficient))
		},
		Entry("empty", 0, 0.2, true),
		Entry("single sample", 1, 0.2, true),
		Entry("empty validation", 2, 0.1, true),
		Entry("zero fraction", 10, 0.0, false),
		Entry("whole fraction", 10, 1.0, false),
	)
})

var _ = Describe("Loader", func() {
	It("batches 80/20 into 32,32,16 and a single 20", func() {
		p, err := Split(indexed(100), 0.2, SplitOptions{Shuffle: true, Seed: 1})
		Expect(err).NotTo(HaveOccurred())

		train, err := NewLoader(p.Train, 32, true, rand.New(rand.NewSource(2)))
		Expect(err).NotTo(HaveOccurred())
		val, err := NewLoader(p.Validation, 32, false, nil)
		Expect(err).NotTo(HaveOccurred())

		var sizes []int
		for _, b := range train.Epoch() {
			sizes = append(sizes, b.Len())
		}
		Expect(sizes).To(Equal([]int{32, 32, 16}))

		vb := val.Epoch()
		Expect(vb).To(HaveLen(1))
		Expect(vb[0].Len()).To(Equal(20))
		Expect(val.Clamped()).To(BeTrue())
	})

	It("reshuffles training batches but keeps membership", func() {
		train, err := NewLoader(indexed(40), 8, true, rand.New(rand.NewSource(3)))
		Expect(err).NotTo(HaveOccurred())

		flatten := func(bs []Batch) []float64 {
			var out []float64
			for _, b := range bs {
				out = append(out, b.X...)
			}
			return out
		}
		first := flatten(train.Epoch())
		second := flatten(train.Epoch())
		Expect(first).NotTo(Equal(second))
		Expect(second).To(ConsistOf(first))
	})

	It("keeps validation batches fixed", func() {
		val, err := NewLoader(indexed(25), 10, false, nil)
		Expect(err).NotTo(HaveOccurred())
		a, b := val.Epoch(), val.Epoch()
		Expect(a).To(HaveLen(3))
		Expect(a[2].Len()).To(Equal(5))
		Expect(a).To(Equal(b))
	})

	It("aligns columns within a batch", func() {
		samples := []aero.FlowSample{{X: 1, Y: 2, AoA: 3, U: 4, V: 5, P: 6}}
		l, err := NewLoader(samples, 4, false, nil)
		Expect(err).NotTo(HaveOccurred())
		b := l.Epoch()[0]
		Expect([]float64{b.X[0], b.Y[0], b.AoA[0], b.U[0], b.V[0], b.P[0]}).To(Equal([]float64{1, 2, 3, 4, 5, 6}))
	})

	It("rejects invalid configurations", func() {
		_, err := NewLoader(nil, 4, false, nil)
		Expect(errors.Is(err, aero.ErrInsufficientData)).To(BeTrue())
		_, err = NewLoader(indexed(4), 0, false, nil)
		Expect(errors.Is(err, aero.ErrInsufficientData)).To(BeTrue())
		_, err = NewLoader(indexed(4), 2, true, nil)
		Expect(err).To(HaveOccurred())
	})
})
