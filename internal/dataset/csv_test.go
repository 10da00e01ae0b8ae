package dataset

import (
	"bytes"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CSV", func() {
	It("reads the named columns and ignores extras", func() {
		in := "x,y,AoA,Re,Mach,u,v,p,CL,CD\n0.5,-1,4,1e6,0.3,1.1,0.2,0.4,0.9,0.05\n"
		samples, err := ReadCSV(strings.NewReader(in))
		Expect(err).NotTo(HaveOccurred())
		Expect(samples).To(HaveLen(1))
		s := samples[0]
		Expect([]float64{s.X, s.Y, s.AoA, s.U, s.V, s.P}).To(Equal([]float64{0.5, -1, 4, 1.1, 0.2, 0.4}))
	})

	It("reports missing columns", func() {
		_, err := ReadCSV(strings.NewReader("x,y,u,v,p\n1,2,3,4,5\n"))
		Expect(err).To(MatchError(ContainSubstring(`"AoA"`)))
	})

	It("reports the line of a bad value", func() {
		_, err := ReadCSV(strings.NewReader("x,y,AoA,u,v,p\n1,2,3,4,5,6\n1,2,oops,4,5,6\n"))
		Expect(err).To(MatchError(ContainSubstring("line 3")))
	})

	It("round-trips generated samples through a file", func() {
		samples := Generate(30, 5)
		path := filepath.Join(GinkgoT().TempDir(), "flow.csv")
		Expect(SaveCSV(path, samples)).To(Succeed())

		loaded, err := LoadCSV(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(samples))
	})

	It("writes a header", func() {
		var buf bytes.Buffer
		Expect(WriteCSV(&buf, nil)).To(Succeed())
		Expect(buf.String()).To(Equal("x,y,AoA,u,v,p\n"))
	})
})

var _ = Describe("Generate", func() {
	It("is deterministic per seed and stays on the unit square", func() {
		a, b := Generate(50, 9), Generate(50, 9)
		Expect(a).To(Equal(b))
		Expect(a).To(HaveLen(50))
		for _, s := range a {
			Expect(s.X).To(BeNumerically(">=", -1))
			Expect(s.X).To(BeNumerically("<=", 1))
			Expect(s.AoA).To(BeNumerically(">=", -5))
			Expect(s.AoA).To(BeNumerically("<=", 15))
		}
	})
})
