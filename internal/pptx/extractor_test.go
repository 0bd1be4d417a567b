package pptx_test

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"image"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/deckgen/deckgen/internal/pptx"
	"github.com/deckgen/deckgen/pkg/imaging"
	"github.com/deckgen/deckgen/pkg/logger"
)

func testLogger() *logger.Logger {
	log := logger.New(
		logger.WithOutput(GinkgoWriter),
		logger.WithPrefix("[pptx-test] "),
		logger.WithFlags(0),
	)
	log.SetVerbose(true)
	log.SetLevel(logger.LevelTrace)
	return log
}

func pngBytes(w, h int) []byte {
	data, err := imaging.EncodePNG(image.NewRGBA(image.Rect(0, 0, w, h)))
	Expect(err).NotTo(HaveOccurred())
	return data
}

func slideXML(text string, embeds ...string) []byte {
	var blips string
	for _, id := range embeds {
		blips += fmt.Sprintf(`<a:blip r:embed=%q/>`, id)
	}
	return []byte(fmt.Sprintf(`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>%s</p:spTree></p:cSld></p:sld>`, text, blips))
}

func relsXML(targets map[string]string) []byte {
	var body string
	for id, target := range targets {
		body += fmt.Sprintf(`<Relationship Id=%q Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target=%q/>`, id, target)
	}
	return []byte(`<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + body + `</Relationships>`)
}

func buildContainer(parts map[string][]byte) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range parts {
		w, err := zw.Create(name)
		Expect(err).NotTo(HaveOccurred())
		_, err = w.Write(data)
		Expect(err).NotTo(HaveOccurred())
	}
	Expect(zw.Close()).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("PPTX extraction", func() {
	var (
		extractor *pptx.Extractor
		ctx       context.Context
	)

	BeforeEach(func() {
		extractor = pptx.NewExtractor(imaging.DefaultThresholds(), testLogger())
		ctx = context.Background()
	})

	It("processes slides in numeric order, not lexical", func() {
		container := buildContainer(map[string][]byte{
			"ppt/slides/slide1.xml":             slideXML("alpha", "rId1"),
			"ppt/slides/slide2.xml":             slideXML("beta"),
			"ppt/slides/slide10.xml":            slideXML("kappa"),
			"ppt/slides/_rels/slide1.xml.rels":  relsXML(map[string]string{"rId1": "../media/pic1.png"}),
			"ppt/media/pic1.png":                pngBytes(100, 80),
		})

		candidates, err := extractor.Extract(ctx, container, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(1))

		// Under lexical ordering slide10 would sit next to slide1 and
		// leak "kappa" into this window.
		Expect(candidates[0].Context).To(ContainSubstring("[Slide 1] alpha"))
		Expect(candidates[0].Context).To(ContainSubstring("[Slide 2] beta"))
		Expect(candidates[0].Context).NotTo(ContainSubstring("kappa"))
	})

	It("merges a shared resource across slides into one candidate", func() {
		container := buildContainer(map[string][]byte{
			"ppt/slides/slide1.xml":            slideXML("first", "rId1"),
			"ppt/slides/slide2.xml":            slideXML("second"),
			"ppt/slides/slide3.xml":            slideXML("third", "rId7"),
			"ppt/slides/_rels/slide1.xml.rels": relsXML(map[string]string{"rId1": "../media/shared.png"}),
			"ppt/slides/_rels/slide3.xml.rels": relsXML(map[string]string{"rId7": "../media/shared.png"}),
			"ppt/media/shared.png":             pngBytes(120, 90),
		})

		candidates, err := extractor.Extract(ctx, container, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(1))
		Expect(candidates[0].PageIndex).To(Equal(1))
		Expect(candidates[0].Context).To(ContainSubstring("[Slide 1] first"))
		Expect(candidates[0].Context).To(ContainSubstring("[Slide 3] third"))
	})

	It("is idempotent over the same unchanged container", func() {
		container := buildContainer(map[string][]byte{
			"ppt/slides/slide1.xml":            slideXML("one", "rId1"),
			"ppt/slides/slide2.xml":            slideXML("two", "rId1"),
			"ppt/slides/_rels/slide1.xml.rels": relsXML(map[string]string{"rId1": "../media/a.png"}),
			"ppt/slides/_rels/slide2.xml.rels": relsXML(map[string]string{"rId1": "../media/a.png"}),
			"ppt/media/a.png":                  pngBytes(64, 64),
		})

		first, err := extractor.Extract(ctx, container, nil)
		Expect(err).NotTo(HaveOccurred())
		second, err := extractor.Extract(ctx, container, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(second)).To(Equal(len(first)))
	})

	It("yields zero images for a slide without a relationship part", func() {
		container := buildContainer(map[string][]byte{
			"ppt/slides/slide1.xml":            slideXML("orphan", "rId1"),
			"ppt/slides/slide2.xml":            slideXML("fine", "rId1"),
			"ppt/slides/_rels/slide2.xml.rels": relsXML(map[string]string{"rId1": "../media/b.png"}),
			"ppt/media/b.png":                  pngBytes(50, 50),
		})

		candidates, err := extractor.Extract(ctx, container, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(1))
		Expect(candidates[0].PageIndex).To(Equal(2))
	})

	It("falls back to a bare filename lookup for non-standard targets", func() {
		container := buildContainer(map[string][]byte{
			"ppt/slides/slide1.xml":            slideXML("odd producer", "rId1"),
			"ppt/slides/_rels/slide1.xml.rels": relsXML(map[string]string{"rId1": "../../media/pic9.png"}),
			"ppt/media/pic9.png":               pngBytes(77, 55),
		})

		candidates, err := extractor.Extract(ctx, container, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(1))
	})

	It("resolves legacy vector markup references", func() {
		vml := []byte(`<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:v="urn:schemas-microsoft-com:vml" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><v:shape><v:imagedata r:id="rId3"/></v:shape></p:sld>`)
		container := buildContainer(map[string][]byte{
			"ppt/slides/slide1.xml":            vml,
			"ppt/slides/_rels/slide1.xml.rels": relsXML(map[string]string{"rId3": "../media/legacy.png"}),
			"ppt/media/legacy.png":             pngBytes(60, 60),
		})

		candidates, err := extractor.Extract(ctx, container, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(1))
	})

	It("filters tiny decorative media", func() {
		container := buildContainer(map[string][]byte{
			"ppt/slides/slide1.xml":            slideXML("tiny", "rId1"),
			"ppt/slides/_rels/slide1.xml.rels": relsXML(map[string]string{"rId1": "../media/dot.png"}),
			"ppt/media/dot.png":                pngBytes(10, 10),
		})

		candidates, err := extractor.Extract(ctx, container, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(BeEmpty())
	})

	It("downscales oversized media preserving aspect", func() {
		container := buildContainer(map[string][]byte{
			"ppt/slides/slide1.xml":            slideXML("big", "rId1"),
			"ppt/slides/_rels/slide1.xml.rels": relsXML(map[string]string{"rId1": "../media/huge.png"}),
			"ppt/media/huge.png":               pngBytes(2048, 512),
		})

		candidates, err := extractor.Extract(ctx, container, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(1))

		w, h, err := imaging.Bounds(candidates[0].PNG)
		Expect(err).NotTo(HaveOccurred())
		Expect(w).To(Equal(1024))
		Expect(h).To(Equal(256))
	})

	It("reports monotonic progress once per slide", func() {
		container := buildContainer(map[string][]byte{
			"ppt/slides/slide1.xml": slideXML("a"),
			"ppt/slides/slide2.xml": slideXML("b"),
			"ppt/slides/slide3.xml": slideXML("c"),
		})

		var seen []int
		_, err := extractor.Extract(ctx, container, func(current, total int) {
			Expect(total).To(Equal(3))
			seen = append(seen, current)
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal([]int{1, 2, 3}))
	})

	It("fails on a container without slides", func() {
		container := buildContainer(map[string][]byte{
			"ppt/presentation.xml": []byte("<xml/>"),
		})
		_, err := extractor.Extract(ctx, container, nil)
		Expect(err).To(HaveOccurred())
	})
})
