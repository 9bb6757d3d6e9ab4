package session

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/scansplitter/internal/naming"
	"github.com/zombor/scansplitter/internal/scanning"
)

var _ = Describe("Reduce", func() {
	var (
		state  State
		action Action
		next   State
		err    error
	)

	BeforeEach(func() {
		state = mustReduce(New(), AddScans{Scans: []Scan{
			{ID: "s1", Filename: "F1.pdf", PageCount: 2},
			{ID: "s2", Filename: "F2.jpg", PageCount: 1},
		}})
	})

	JustBeforeEach(func() {
		next, err = Reduce(state, action)
	})

	When("the action fails", func() {
		BeforeEach(func() {
			action = CloseScan{ScanID: "missing"}
		})

		It("returns the state unchanged", func() {
			Expect(err).To(MatchError(ErrUnknownScan))
			Expect(next).To(Equal(state))
		})
	})

	Describe("AddScans", func() {
		BeforeEach(func() {
			action = AddScans{Scans: []Scan{{ID: "s3", Filename: "F3.heic"}}}
		})

		It("appends the scans and activates the first new one", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Scans).To(HaveLen(3))
			Expect(next.Active).To(Equal(2))
			Expect(next.Scans[2].PageCount).To(Equal(1))
			Expect(next.Scans[2].CurrentPage).To(Equal(1))
			Expect(next.Scans[2].Status).To(Equal(StatusIdle))
			Expect(next.Version).To(Equal(state.Version + 1))
		})

		It("does not touch the previous state", func() {
			Expect(state.Scans).To(HaveLen(2))
		})

		When("an ID is already used", func() {
			BeforeEach(func() {
				action = AddScans{Scans: []Scan{{ID: "s1"}}}
			})

			It("rejects the upload", func() {
				Expect(err).To(MatchError(ErrDuplicateID))
			})
		})
	})

	Describe("Step", func() {
		When("moving forward inside a multi-page scan", func() {
			BeforeEach(func() {
				state = mustReduce(state, GoTo{ScanID: "s1", Page: 1})
				action = Step{Forward: true}
			})

			It("goes to the next page", func() {
				Expect(next.Active).To(Equal(0))
				Expect(next.Scans[0].CurrentPage).To(Equal(2))
			})
		})

		When("moving forward from the last page of a scan", func() {
			BeforeEach(func() {
				state = mustReduce(state, GoTo{ScanID: "s1", Page: 2})
				action = Step{Forward: true}
			})

			It("goes to the next scan", func() {
				Expect(next.Active).To(Equal(1))
				Expect(next.Scans[1].CurrentPage).To(Equal(1))
			})
		})

		When("moving back from the first page of a scan", func() {
			BeforeEach(func() {
				state = mustReduce(state, GoTo{ScanID: "s2", Page: 1})
				action = Step{Forward: false}
			})

			It("goes to the last page of the previous scan", func() {
				Expect(next.Active).To(Equal(0))
				Expect(next.Scans[0].CurrentPage).To(Equal(2))
			})
		})

		When("already at the end", func() {
			BeforeEach(func() {
				state = mustReduce(state, GoTo{ScanID: "s2", Page: 1})
				action = Step{Forward: true}
			})

			It("stays put", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(next.Active).To(Equal(1))
				Expect(next.Scans[1].CurrentPage).To(Equal(1))
			})
		})

		When("already at the start", func() {
			BeforeEach(func() {
				state = mustReduce(state, GoTo{ScanID: "s1", Page: 1})
				action = Step{Forward: false}
			})

			It("stays put", func() {
				Expect(next.Active).To(Equal(0))
				Expect(next.Scans[0].CurrentPage).To(Equal(1))
			})
		})

		When("there are no scans", func() {
			BeforeEach(func() {
				state = New()
				action = Step{Forward: true}
			})

			It("does nothing", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(next.Scans).To(BeEmpty())
			})
		})
	})

	Describe("GoTo", func() {
		When("the page does not exist", func() {
			BeforeEach(func() {
				action = GoTo{ScanID: "s1", Page: 3}
			})

			It("fails", func() {
				Expect(err).To(MatchError(ErrPageRange))
			})
		})

		When("no page is given", func() {
			BeforeEach(func() {
				state = mustReduce(state, GoTo{ScanID: "s1", Page: 2}, GoTo{ScanID: "s2", Page: 1})
				action = GoTo{ScanID: "s1"}
			})

			It("keeps the page last shown for that scan", func() {
				Expect(next.Active).To(Equal(0))
				Expect(next.Scans[0].CurrentPage).To(Equal(2))
			})
		})
	})

	Describe("CloseScan", func() {
		BeforeEach(func() {
			state = mustReduce(state,
				AddCrops{ScanID: "s1", Page: 1, Crops: crops("a")},
				AddCrops{ScanID: "s2", Page: 1, Crops: crops("b", "c")},
			)
		})

		When("closing the active scan at the end", func() {
			BeforeEach(func() {
				state = mustReduce(state, GoTo{ScanID: "s2", Page: 1})
				action = CloseScan{ScanID: "s2"}
			})

			It("activates the previous scan and drops its crops", func() {
				Expect(next.Active).To(Equal(0))
				Expect(next.Scans).To(HaveLen(1))
				Expect(next.Crops).To(HaveLen(1))
				Expect(next.Crops[0].ID).To(Equal("a"))
			})
		})

		When("closing a scan before the active one", func() {
			BeforeEach(func() {
				state = mustReduce(state, GoTo{ScanID: "s2", Page: 1})
				action = CloseScan{ScanID: "s1"}
			})

			It("keeps the same scan active and renumbers the crops", func() {
				Expect(next.Active).To(Equal(0))
				Expect(next.Scans[0].ID).To(Equal("s2"))
				Expect(next.Crops[0].GlobalIndex).To(Equal(0))
				Expect(next.Crops[0].Name).To(Equal("album_0001"))
				Expect(next.Crops[1].Name).To(Equal("album_0002"))
			})
		})

		When("closing the last scan", func() {
			BeforeEach(func() {
				state = mustReduce(state, CloseScan{ScanID: "s1"})
				action = CloseScan{ScanID: "s2"}
			})

			It("leaves an empty session", func() {
				Expect(next.Scans).To(BeEmpty())
				Expect(next.Crops).To(BeEmpty())
				Expect(next.Active).To(Equal(0))
				_, ok := next.ActiveScan()
				Expect(ok).To(BeFalse())
			})
		})
	})

	Describe("SetRegions and SelectBox", func() {
		var regions [][]scanning.Region

		BeforeEach(func() {
			regions = [][]scanning.Region{
				{{X: 1, Y: 1, Width: 10, Height: 10}, {X: 20, Y: 1, Width: 10, Height: 10}},
				{},
			}
			action = SetRegions{ScanID: "s1", Pages: regions}
		})

		It("selects every region and marks the scan detected", func() {
			Expect(next.Scans[0].Status).To(Equal(StatusDetected))
			Expect(next.Scans[0].Selected(1)).To(Equal(regions[0]))
			Expect(next.Scans[0].Selected(2)).To(BeEmpty())
		})

		It("lets a region be excluded", func() {
			after := mustReduce(next, SelectBox{ScanID: "s1", Page: 1, Index: 0, Selected: false})
			Expect(after.Scans[0].Selected(1)).To(Equal(regions[0][1:]))
			Expect(next.Scans[0].Selected(1)).To(HaveLen(2))
		})

		It("rejects boxes that do not exist", func() {
			_, err := Reduce(next, SelectBox{ScanID: "s1", Page: 2, Index: 0})
			Expect(err).To(MatchError(ErrPageRange))
		})

		When("the page count does not match", func() {
			BeforeEach(func() {
				action = SetRegions{ScanID: "s1", Pages: regions[:1]}
			})

			It("fails", func() {
				Expect(err).To(MatchError(ErrPageRange))
			})
		})
	})

	Describe("SetStatus", func() {
		BeforeEach(func() {
			action = SetStatus{ScanID: "s2", Status: StatusFailed, Err: "boom"}
		})

		It("records the failure", func() {
			Expect(next.Scans[1].Status).To(Equal(StatusFailed))
			Expect(next.Scans[1].Error).To(Equal("boom"))
		})
	})

	Describe("AddCrops", func() {
		When("crops arrive out of order", func() {
			BeforeEach(func() {
				state = mustReduce(state,
					UpdateNaming{Pattern: naming.Pattern{AlbumName: "Trip", StartNumber: 1, Pattern: "{album}_{scan}_p{page}_{photo}_{n}"}},
					AddCrops{ScanID: "s2", Page: 1, Crops: crops("c", "d")},
					AddCrops{ScanID: "s1", Page: 2, Crops: crops("b")},
				)
				action = AddCrops{ScanID: "s1", Page: 1, Crops: crops("a")}
			})

			It("orders them by scan, page and photo", func() {
				names := []string{}
				for _, c := range next.Crops {
					names = append(names, c.ID+":"+c.Name)
				}
				Expect(names).To(Equal([]string{
					"a:Trip_F1_p01_01_0001",
					"b:Trip_F1_p02_01_0002",
					"c:Trip_F2_p01_01_0003",
					"d:Trip_F2_p01_02_0004",
				}))
			})
		})

		When("a page is cropped again", func() {
			BeforeEach(func() {
				state = mustReduce(state, AddCrops{ScanID: "s1", Page: 1, Crops: crops("a", "b")})
				action = AddCrops{ScanID: "s1", Page: 1, Crops: crops("x")}
			})

			It("replaces the earlier crops of that page", func() {
				Expect(next.Crops).To(HaveLen(1))
				Expect(next.Crops[0].ID).To(Equal("x"))
				Expect(next.Crops[0].Photo).To(Equal(1))
			})
		})

		When("the page is out of range", func() {
			BeforeEach(func() {
				action = AddCrops{ScanID: "s2", Page: 2, Crops: crops("x")}
			})

			It("fails", func() {
				Expect(err).To(MatchError(ErrPageRange))
			})
		})
	})

	Describe("RenameCrop", func() {
		BeforeEach(func() {
			state = mustReduce(state,
				AddCrops{ScanID: "s1", Page: 1, Crops: crops("a")},
				AddCrops{ScanID: "s2", Page: 1, Crops: crops("b")},
			)
			action = RenameCrop{CropID: "b", Name: "Grandma"}
		})

		It("keeps the user's name through re-sequencing", func() {
			Expect(next.Crops[1].Name).To(Equal("Grandma"))

			after := mustReduce(next,
				UpdateNaming{Pattern: naming.Pattern{AlbumName: "Xmas", StartNumber: 5, Pattern: "{album}_{n}"}},
				CloseScan{ScanID: "s1"},
			)
			Expect(after.Crops).To(HaveLen(1))
			Expect(after.Crops[0].Name).To(Equal("Grandma"))
			Expect(after.Crops[0].GlobalIndex).To(Equal(0))
		})

		When("the name has a forbidden character", func() {
			BeforeEach(func() {
				action = RenameCrop{CropID: "b", Name: "a/b"}
			})

			It("fails", func() {
				Expect(err).To(MatchError(ErrInvalidName))
				Expect(err).To(MatchError(ContainSubstring("Invalid character: /")))
			})
		})

		When("the crop does not exist", func() {
			BeforeEach(func() {
				action = RenameCrop{CropID: "zzz", Name: "x"}
			})

			It("fails", func() {
				Expect(err).To(MatchError(ErrUnknownCrop))
			})
		})
	})

	Describe("UpdateNaming", func() {
		BeforeEach(func() {
			state = mustReduce(state, AddCrops{ScanID: "s1", Page: 1, Crops: crops("a")})
		})

		When("the start number is not positive", func() {
			BeforeEach(func() {
				action = UpdateNaming{Pattern: naming.Pattern{AlbumName: "Vacation", StartNumber: 0, Pattern: "{album}_{n}"}}
			})

			It("coerces it to 1", func() {
				Expect(next.Naming.StartNumber).To(Equal(1))
				Expect(next.Crops[0].Name).To(Equal("Vacation_0001"))
			})
		})

		When("the start number is moved", func() {
			BeforeEach(func() {
				action = UpdateNaming{Pattern: naming.Pattern{AlbumName: "Vacation", StartNumber: 4, Pattern: "{album}_{n}"}}
			})

			It("renumbers the crops", func() {
				Expect(next.Crops[0].Name).To(Equal("Vacation_0004"))
			})
		})

		When("the pattern is invalid", func() {
			BeforeEach(func() {
				action = UpdateNaming{Pattern: naming.Pattern{StartNumber: 1, Pattern: "{nope}"}}
			})

			It("stores it but keeps the previous names", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(next.Naming.Pattern).To(Equal("{nope}"))
				Expect(next.Crops[0].Name).To(Equal("album_0001"))
			})

			It("still names crops added afterwards", func() {
				after := mustReduce(next, AddCrops{ScanID: "s1", Page: 1, Crops: crops("x", "y")})
				Expect(after.Crops).To(HaveLen(2))
				for _, c := range after.Crops {
					Expect(c.Name).To(Equal("{nope}"))
				}
			})
		})

		When("the pattern is invalid but still renders placeholders", func() {
			BeforeEach(func() {
				action = UpdateNaming{Pattern: naming.Pattern{AlbumName: "Trip", StartNumber: 1, Pattern: "{album}:{n}"}}
			})

			It("gives new crops a non-empty rendered name", func() {
				after := mustReduce(next, AddCrops{ScanID: "s1", Page: 1, Crops: crops("x")})
				Expect(after.Crops[0].Name).To(Equal("Trip:0001"))
			})
		})
	})

	Describe("UpdateSettings", func() {
		BeforeEach(func() {
			action = UpdateSettings{Settings: Settings{MinArea: 99, MaxArea: 1, Mode: ModeU2Net}}
		})

		It("clamps the values", func() {
			Expect(next.Settings.MinArea).To(Equal(50))
			Expect(next.Settings.MaxArea).To(Equal(50))
			Expect(next.Settings.Mode).To(Equal(ModeU2Net))
		})
	})

	Describe("Reset", func() {
		BeforeEach(func() {
			action = Reset{}
		})

		It("starts over but keeps counting versions", func() {
			Expect(next.Scans).To(BeEmpty())
			Expect(next.Naming).To(Equal(naming.DefaultPattern()))
			Expect(next.Version).To(Equal(state.Version + 1))
		})
	})
})
