package naming

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Validate", func() {
	DescribeTable("empty patterns",
		func(pattern string) {
			Expect(Validate(pattern)).To(Equal(Result{Valid: false, Error: "Pattern cannot be empty"}))
		},
		Entry("empty string", ""),
		Entry("single space", " "),
		Entry("tabs and newlines", "\t\n  \r"),
	)

	DescribeTable("filesystem-unsafe characters",
		func(pattern, want string) {
			res := Validate(pattern)
			Expect(res.Valid).To(BeFalse())
			Expect(res.Error).To(Equal(want))
		},
		Entry("less than", "{n}<", "Invalid character: <"),
		Entry("greater than", "a>{n}", "Invalid character: >"),
		Entry("colon", "{album}:{n}", "Invalid character: :"),
		Entry("double quote", `"{n}"`, `Invalid character: "`),
		Entry("pipe", "{n}|x", "Invalid character: |"),
		Entry("question mark", "{n}?", "Invalid character: ?"),
		Entry("star", "*{n}", "Invalid character: *"),
		Entry("backslash", `dir\{n}`, `Invalid character: \`),
		Entry("slash", "dir/{n}", "Invalid character: /"),
		Entry("leftmost wins", "{n}/a<b", "Invalid character: /"),
		Entry("leftmost wins in reverse", "{n}<a/b", "Invalid character: <"),
		Entry("beats unknown placeholder", "{foo}:{n}", "Invalid character: :"),
	)

	DescribeTable("unknown placeholders",
		func(pattern, want string) {
			res := Validate(pattern)
			Expect(res.Valid).To(BeFalse())
			Expect(res.Error).To(Equal(want))
		},
		Entry("simple", "{foo}", "Unknown placeholder: {foo}"),
		Entry("after a valid token", "{album}_{date}", "Unknown placeholder: {date}"),
		Entry("first of several", "{a}{b}", "Unknown placeholder: {a}"),
		Entry("token with a recognized prefix", "{albumx}", "Unknown placeholder: {albumx}"),
		Entry("token starting with n", "{nope}", "Unknown placeholder: {nope}"),
		Entry("case sensitive", "{N}", "Unknown placeholder: {N}"),
		Entry("padded name", "{ n }", "Unknown placeholder: { n }"),
		Entry("nested opening brace", "{{album}", "Unknown placeholder: {{album}"),
		Entry("opening brace swallowed by later closer", "{abc {n}", "Unknown placeholder: {abc {n}"),
		Entry("after empty braces", "{}{foo}", "Unknown placeholder: {foo}"),
	)

	DescribeTable("valid patterns",
		func(pattern string) {
			Expect(Validate(pattern)).To(Equal(Result{Valid: true}))
		},
		Entry("default", "{album}_{n}"),
		Entry("all tokens", "{album}-{scan}-{page}-{n}-{photo}"),
		Entry("repeated tokens", "{n}{n}{n}"),
		Entry("surrounding literal text", "Family Photos {n} (scanned)"),
		Entry("dangling opening brace", "{n}_{abc"),
		Entry("trailing opening brace", "{n}{"),
		Entry("lone closing brace", "{n}}"),
		Entry("empty braces", "{}{n}"),
		Entry("unicode literal text", "Urlaub_Größe_{photo}"),
	)

	It("reports the unknown token before the missing placeholder", func() {
		Expect(Validate("{foo}").Error).To(Equal("Unknown placeholder: {foo}"))
	})

	DescribeTable("patterns without any placeholder",
		func(pattern string) {
			Expect(Validate(pattern)).To(Equal(Result{Valid: false, Error: "Pattern must include at least one placeholder"}))
		},
		Entry("plain literal", "photo"),
		Entry("dangling brace only", "photo_{abc"),
		Entry("empty braces only", "photo{}"),
	)

	It("is deterministic", func() {
		p := "{album}_{bad}"
		Expect(Validate(p)).To(Equal(Validate(p)))
	})

	It("handles long patterns", func() {
		p := strings.Repeat("{n}_", 10000)
		Expect(Validate(p).Valid).To(BeTrue())
	})
})

var _ = Describe("ValidateName", func() {
	It("accepts plain names", func() {
		Expect(ValidateName("Vacation_0001").Valid).To(BeTrue())
	})

	It("does not interpret braces", func() {
		Expect(ValidateName("{foo}").Valid).To(BeTrue())
	})

	It("rejects empty names", func() {
		Expect(ValidateName("  ")).To(Equal(Result{Valid: false, Error: "Name cannot be empty"}))
	})

	It("rejects unsafe characters", func() {
		Expect(ValidateName("a/b").Error).To(Equal("Invalid character: /"))
	})
})
