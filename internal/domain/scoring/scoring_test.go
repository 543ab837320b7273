package scoring_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/expertgraph/internal/domain/model"
	scoring "github.com/okian/expertgraph/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func contrib(person, domain string, n int) model.ContributionFact {
	return model.ContributionFact{Person: person, Domain: domain, Count: n}
}

func collab(a, b string, n int) model.CollaborationFact {
	return model.CollaborationFact{PersonA: a, PersonB: b, Count: n}
}

func TestScorer_Rank(t *testing.T) {
	Convey("Given a scorer with default weights", t, func() {
		s := scoring.New()
		ctx := context.Background()

		Convey("When A leads on titles and B leads on collaborations", func() {
			res, err := s.Rank(ctx, scoring.Input{
				Person: "P",
				Domain: "iot",
				Contributions: []model.ContributionFact{
					contrib("A", "iot", 10),
					contrib("B", "iot", 5),
				},
				Collaborations: []model.CollaborationFact{
					collab("P", "A", 5),
					collab("B", "P", 10),
				},
			})

			Convey("Then A scores 0.85, B scores 0.65 and P is appended", func() {
				So(err, ShouldBeNil)
				So(len(res), ShouldEqual, 3)
				So(res[0].Name, ShouldEqual, "A")
				So(res[0].Score, ShouldAlmostEqual, 0.85, 1e-9)
				So(res[0].TitleCount, ShouldEqual, 10)
				So(res[0].Collaborations, ShouldEqual, 5)
				So(res[1].Name, ShouldEqual, "B")
				So(res[1].Score, ShouldAlmostEqual, 0.65, 1e-9)
				So(res[2], ShouldResemble, scoring.Result{Name: "P"})
			})
		})

		Convey("When the domain has no candidates", func() {
			res, err := s.Rank(ctx, scoring.Input{Person: "X", Domain: "quantum computing"})

			Convey("Then only the self record is returned", func() {
				So(err, ShouldBeNil)
				So(res, ShouldResemble, []scoring.Result{{Name: "X"}})
			})
		})

		Convey("When a candidate holds both maxima", func() {
			res, err := s.Rank(ctx, scoring.Input{
				Person:         "P",
				Domain:         "ml",
				Contributions:  []model.ContributionFact{contrib("A", "ml", 4), contrib("B", "ml", 2)},
				Collaborations: []model.CollaborationFact{collab("P", "A", 3), collab("P", "B", 1)},
			})

			Convey("Then its score is exactly 1", func() {
				So(err, ShouldBeNil)
				So(res[0].Name, ShouldEqual, "A")
				So(res[0].Score, ShouldAlmostEqual, 1.0, 1e-12)
			})
		})

		Convey("When scores tie", func() {
			res, err := s.Rank(ctx, scoring.Input{
				Person: "P",
				Domain: "ml",
				Contributions: []model.ContributionFact{
					contrib("Zed", "ml", 3),
					contrib("Amy", "ml", 3),
					contrib("Max", "ml", 3),
				},
			})

			Convey("Then names sort ascending", func() {
				So(err, ShouldBeNil)
				So(res[0].Name, ShouldEqual, "Amy")
				So(res[1].Name, ShouldEqual, "Max")
				So(res[2].Name, ShouldEqual, "Zed")
				So(res[0].Score, ShouldAlmostEqual, 0.7, 1e-9)
			})
		})

		Convey("When there are more candidates than the limit", func() {
			var facts []model.ContributionFact
			for i := 1; i <= 9; i++ {
				facts = append(facts, contrib(fmt.Sprintf("c%d", i), "ml", i))
			}
			res, err := s.Rank(ctx, scoring.Input{Person: "P", Domain: "ml", Contributions: facts})

			Convey("Then five ranked rows plus the self record are returned", func() {
				So(err, ShouldBeNil)
				So(len(res), ShouldEqual, 6)
				So(res[0].Name, ShouldEqual, "c9")
				So(res[4].Name, ShouldEqual, "c5")
				So(res[5].Name, ShouldEqual, "P")
				for i := 1; i < 5; i++ {
					So(res[i-1].Score, ShouldBeGreaterThanOrEqualTo, res[i].Score)
				}
				for _, r := range res {
					So(r.Score, ShouldBeBetweenOrEqual, 0.0, 1.0)
				}
			})
		})

		Convey("When the person has a stronger collaboration outside the domain", func() {
			res, err := s.Rank(ctx, scoring.Input{
				Person:        "P",
				Domain:        "ml",
				Contributions: []model.ContributionFact{contrib("A", "ml", 2)},
				Collaborations: []model.CollaborationFact{
					collab("P", "A", 2),
					collab("P", "Outsider", 8),
				},
			})

			Convey("Then the collaboration maximum still counts every collaborator", func() {
				So(err, ShouldBeNil)
				So(len(res), ShouldEqual, 2)
				So(res[0].Name, ShouldEqual, "A")
				So(res[0].Score, ShouldAlmostEqual, 0.7+0.3*2.0/8.0, 1e-9)
			})
		})

		Convey("When the person also contributes to the domain", func() {
			res, err := s.Rank(ctx, scoring.Input{
				Person:        "P",
				Domain:        "ml",
				Contributions: []model.ContributionFact{contrib("P", "ml", 50), contrib("A", "ml", 5)},
			})

			Convey("Then the person is never ranked and does not set the title maximum", func() {
				So(err, ShouldBeNil)
				So(len(res), ShouldEqual, 2)
				So(res[0].Name, ShouldEqual, "A")
				So(res[0].Score, ShouldAlmostEqual, 0.7, 1e-9)
				So(res[1], ShouldResemble, scoring.Result{Name: "P"})
			})
		})

		Convey("When facts mix domains, cases and zero counts", func() {
			res, err := s.Rank(ctx, scoring.Input{
				Person: "P",
				Domain: "  Machine Learning ",
				Contributions: []model.ContributionFact{
					contrib("A", "machine learning", 2),
					contrib("A", "MACHINE LEARNING", 4),
					contrib("B", "networks", 9),
					contrib("C", "machine learning", 0),
				},
				Collaborations: []model.CollaborationFact{collab("Q", "R", 100)},
			})

			Convey("Then only positive facts of the domain count and duplicates keep the max", func() {
				So(err, ShouldBeNil)
				So(len(res), ShouldEqual, 2)
				So(res[0].Name, ShouldEqual, "A")
				So(res[0].TitleCount, ShouldEqual, 4)
				So(res[0].Collaborations, ShouldEqual, 0)
				So(res[0].Score, ShouldAlmostEqual, 0.7, 1e-9)
			})
		})

		Convey("When the same input is ranked twice", func() {
			in := scoring.Input{
				Person:         "P",
				Domain:         "ml",
				Contributions:  []model.ContributionFact{contrib("A", "ml", 3), contrib("B", "ml", 3), contrib("C", "ml", 1)},
				Collaborations: []model.CollaborationFact{collab("P", "C", 4)},
			}
			first, err1 := s.Rank(ctx, in)
			second, err2 := s.Rank(ctx, in)

			Convey("Then both results are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldResemble, first)
			})
		})
	})
}

func TestScorer_InvalidInput(t *testing.T) {
	Convey("Given a scorer", t, func() {
		s := scoring.New()

		Convey("When the person is blank", func() {
			_, err := s.Rank(context.Background(), scoring.Input{Person: "  ", Domain: "ml"})
			So(errors.Is(err, scoring.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When the domain is empty", func() {
			_, err := s.Rank(context.Background(), scoring.Input{Person: "P"})
			So(errors.Is(err, scoring.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.Rank(ctx, scoring.Input{Person: "P", Domain: "ml"})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("When validating directly", func() {
			p, d, err := scoring.Validate(" Ada ", " IoT ")
			So(err, ShouldBeNil)
			So(p, ShouldEqual, "Ada")
			So(d, ShouldEqual, "iot")
		})
	})
}

func TestScorer_Options(t *testing.T) {
	Convey("Given scorer options", t, func() {
		in := scoring.Input{
			Person:         "P",
			Domain:         "ml",
			Contributions:  []model.ContributionFact{contrib("A", "ml", 10), contrib("B", "ml", 5)},
			Collaborations: []model.CollaborationFact{collab("P", "A", 5), collab("P", "B", 10)},
		}

		Convey("When weights favour collaborations", func() {
			res, err := scoring.New(scoring.WithWeights(0.2, 0.8)).Rank(context.Background(), in)

			Convey("Then B overtakes A", func() {
				So(err, ShouldBeNil)
				So(res[0].Name, ShouldEqual, "B")
				So(res[0].Score, ShouldAlmostEqual, 0.9, 1e-9)
			})
		})

		Convey("When weights do not sum to one", func() {
			res, err := scoring.New(scoring.WithWeights(0.9, 0.9)).Rank(context.Background(), in)

			Convey("Then the defaults are kept", func() {
				So(err, ShouldBeNil)
				So(res[0].Score, ShouldAlmostEqual, 0.85, 1e-9)
			})
		})

		Convey("When a weight is negative", func() {
			res, _ := scoring.New(scoring.WithWeights(-0.5, 1.5)).Rank(context.Background(), in)
			So(res[0].Score, ShouldAlmostEqual, 0.85, 1e-9)
		})

		Convey("When the limit is lowered", func() {
			s := scoring.New(scoring.WithLimit(1), scoring.WithLimit(0))
			res, err := s.Rank(context.Background(), in)

			Convey("Then one ranked row plus the self record is returned", func() {
				So(err, ShouldBeNil)
				So(s.Limit(), ShouldEqual, 1)
				So(len(res), ShouldEqual, 2)
				So(res[1].Name, ShouldEqual, "P")
			})
		})
	})
}
