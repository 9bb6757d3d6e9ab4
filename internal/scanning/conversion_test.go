package scanning

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	return img
}

func pngBytes(w, h int) []byte {
	var buf bytes.Buffer
	Expect(png.Encode(&buf, solidImage(w, h))).To(Succeed())
	return buf.Bytes()
}

func jpegBytes(w, h int) []byte {
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, solidImage(w, h), nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("ContentTypeFor", func() {
	DescribeTable("extensions",
		func(name, want string) {
			Expect(ContentTypeFor(name)).To(Equal(want))
		},
		Entry("jpg", "a.JPG", "image/jpeg"),
		Entry("jpeg", "a.jpeg", "image/jpeg"),
		Entry("png", "a.png", "image/png"),
		Entry("pdf", "album.pdf", "application/pdf"),
		Entry("heic", "IMG_0001.HEIC", "image/heic"),
		Entry("unknown", "a.bin", "application/octet-stream"),
	)
})

var _ = Describe("PageCount", func() {
	It("counts one page for images", func() {
		n, err := PageCount(pngBytes(4, 4), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})

	It("rejects data that is not an image", func() {
		_, err := PageCount([]byte("hello, not an image"), "text/plain")
		Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
	})

	It("rejects a truncated JPEG", func() {
		_, err := PageCount(jpegBytes(8, 6)[:4], "image/jpeg")
		Expect(err).To(HaveOccurred())
	})

	It("rejects HEIC data that does not decode", func() {
		_, err := PageCount([]byte("garbage"), "image/heic")
		Expect(err).To(MatchError(ContainSubstring("HEIC")))
	})

	It("fails on a broken PDF", func() {
		_, err := PageCount([]byte("%PDF-1.4 not really"), "application/pdf")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("RenderPage", func() {
	It("returns PNG data unchanged", func() {
		data := pngBytes(8, 6)
		out, err := RenderPage(data, "image/png", 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
	})

	It("converts JPEG to PNG", func() {
		out, err := RenderPage(jpegBytes(8, 6), "image/jpeg", 1)
		Expect(err).NotTo(HaveOccurred())
		w, h, err := PageSize(out)
		Expect(err).NotTo(HaveOccurred())
		Expect([]int{w, h}).To(Equal([]int{8, 6}))
	})

	It("rejects pages past the first for images", func() {
		_, err := RenderPage(pngBytes(2, 2), "image/png", 2)
		Expect(err).To(MatchError(ContainSubstring("out of range")))
	})

	It("reports unsupported formats", func() {
		_, err := RenderPage([]byte("definitely not an image"), "image/jpeg", 1)
		Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
	})
})

var _ = Describe("Thumbnail", func() {
	It("scales the longest edge down", func() {
		out, err := Thumbnail(pngBytes(400, 200), 100)
		Expect(err).NotTo(HaveOccurred())
		w, h, err := PageSize(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(100))
		Expect(h).To(Equal(50))
	})

	It("leaves small pages alone", func() {
		data := pngBytes(40, 20)
		out, err := Thumbnail(data, 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(data))
	})
})

var _ = Describe("isHEICFormat", func() {
	It("detects the ftyp brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00"))).To(BeTrue())
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypmp42\x00\x00"))).To(BeFalse())
		Expect(isHEICFormat([]byte("short"))).To(BeFalse())
	})
})
