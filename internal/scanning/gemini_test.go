package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NewGemini", func() {
	It("requires an API key", func() {
		g, err := NewGemini("", "")
		Expect(err).To(MatchError(ContainSubstring("api key is required")))
		Expect(g).To(BeNil())
	})
})
