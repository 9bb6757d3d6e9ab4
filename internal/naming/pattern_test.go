package naming

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pattern", func() {
	var p Pattern

	BeforeEach(func() {
		p = DefaultPattern()
	})

	It("starts with the default pattern and start number 1", func() {
		Expect(p).To(Equal(Pattern{StartNumber: 1, Pattern: "{album}_{n}"}))
	})

	DescribeTable("WithStartNumber",
		func(n, want int) {
			Expect(p.WithStartNumber(n).StartNumber).To(Equal(want))
		},
		Entry("positive", 42, 42),
		Entry("one", 1, 1),
		Entry("zero snaps to one", 0, 1),
		Entry("negative snaps to one", -7, 1),
		Entry("beyond the maximum clamps", MaxStartNumber+5, MaxStartNumber),
	)

	DescribeTable("ParseStartNumber",
		func(in string, want int) {
			Expect(ParseStartNumber(in)).To(Equal(want))
		},
		Entry("plain", "12", 12),
		Entry("leading whitespace", "  7", 7),
		Entry("trailing garbage", "12abc", 12),
		Entry("decimal", "3.9", 3),
		Entry("explicit plus", "+5", 5),
		Entry("empty", "", 1),
		Entry("letters", "abc", 1),
		Entry("zero", "0", 1),
		Entry("negative", "-3", 1),
		Entry("above 32 bits", "3000000000", 3000000000),
		Entry("just past int32", "2147483650", 2147483650),
		Entry("eleven digits", "12345678901", 12345678901),
		Entry("at the maximum", "9007199254740991", MaxStartNumber),
		Entry("beyond the maximum", "99999999999999999999999", MaxStartNumber),
	)

	It("appends placeholders", func() {
		p = p.WithPlaceholder("{photo}")
		Expect(p.Pattern).To(Equal("{album}_{n}{photo}"))
	})

	Describe("Context", func() {
		It("derives the values the way the preview does", func() {
			p.AlbumName = "Vacation"
			p.StartNumber = 10
			ctx := p.Context("scan_001.jpg", 2, 3, 0)
			Expect(ctx).To(Equal(NameContext{Album: "Vacation", Scan: "scan_001", Page: 2, N: 13, Photo: 1}))
		})

		It("uses the default album when none is set", func() {
			Expect(p.Context("a.jpg", 1, 0, 0).Album).To(Equal("album"))
		})

		It("treats a non-positive start number as 1", func() {
			p.StartNumber = 0
			Expect(p.Context("a.jpg", 1, 4, 0).N).To(Equal(5))
		})
	})

	Describe("Name", func() {
		It("renders the global number from start number and index", func() {
			p.AlbumName = "Vacation"
			Expect(p.Name("IMG.jpg", 1, 3, 0)).To(Equal("Vacation_0004"))
		})
	})

	Describe("Preview", func() {
		It("renders the sample with the jpg extension", func() {
			p.AlbumName = "Summer"
			Expect(p.Preview(DefaultSample)).To(Equal("Summer_0001.jpg"))
		})

		It("uses the sample scan name", func() {
			p.Pattern = "{scan}_{photo}"
			Expect(p.Preview(Sample{Filename: "box3.pdf", Page: 2, PhotoIndex: 4})).To(Equal("box3_05.jpg"))
		})

		It("is empty for an invalid pattern", func() {
			p.Pattern = "{foo}"
			Expect(p.Preview(DefaultSample)).To(BeEmpty())
		})
	})

	DescribeTable("ScanName",
		func(filename, want string) {
			Expect(ScanName(filename)).To(Equal(want))
		},
		Entry("jpg", "scan_001.jpg", "scan_001"),
		Entry("only the last extension", "archive.tar.gz", "archive.tar"),
		Entry("no extension", "scan", "scan"),
		Entry("trailing dot kept", "scan.", "scan."),
		Entry("dot file", ".hidden", ""),
		Entry("unix directory", "/tmp/uploads/a.png", "a"),
		Entry("windows directory", `C:\scans\b.pdf`, "b"),
		Entry("empty", "", ""),
		Entry("decomposed umlaut becomes composed", "Mu\u0308nchen.jpg", "M\u00fcnchen"),
	)
})
