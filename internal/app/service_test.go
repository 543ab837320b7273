package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	service "github.com/okian/expertgraph/internal/app"
	"github.com/okian/expertgraph/internal/adapters/repository"
	"github.com/okian/expertgraph/internal/adapters/search"
	"github.com/okian/expertgraph/internal/domain/model"
	"github.com/okian/expertgraph/internal/domain/types"
	"github.com/okian/expertgraph/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func sampleStore() *repository.MemoryStore {
	fx, err := repository.SampleFixture()
	if err != nil {
		panic(err)
	}
	return repository.NewMemoryStore(fx)
}

// failingStore fails every contribution lookup.
type failingStore struct {
	repository.Store
	err   error
	calls int
}

func (f *failingStore) DomainContributions(context.Context, string) ([]model.ContributionFact, error) {
	f.calls++
	return nil, f.err
}

// slowArticlesStore holds Articles until release is closed.
type slowArticlesStore struct {
	repository.Store
	entered chan struct{}
	release chan struct{}
}

func (s *slowArticlesStore) Articles(ctx context.Context) ([]model.Article, error) {
	close(s.entered)
	<-s.release
	return s.Store.Articles(ctx)
}

func articlesOf(p types.SearchPage, err error) ([]types.ArticleHit, error) {
	return p.Articles, err
}

func names(rows []types.Recommendation) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Name
	}
	return out
}

func round(v float64) float64 {
	return math.Round(v*10_000) / 10_000
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New(sampleStore())

		Convey("Then it reports as not started", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["breakerState"], ShouldEqual, "closed")
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(sampleStore(),
			service.WithWorkerCount(3),
			service.WithQueueSize(500),
			service.WithDedupeSize(250),
		)

		Convey("Then the options show up in the stats", func() {
			stats := svc.GetStats()
			So(stats["workerCount"], ShouldEqual, 3)
			So(stats["queueSize"], ShouldEqual, 500)
			So(stats["dedupeSize"], ShouldEqual, 250)
		})
	})
}

func TestService_Recommend(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service over the sample faculty", t, func() {
		svc := service.New(sampleStore())

		Convey("When Ada asks for machine learning collaborators", func() {
			rows, err := svc.Recommend(ctx, "Ada Lovelace", "machine learning")

			Convey("Then candidates are ranked by weighted score with Ada last", func() {
				So(err, ShouldBeNil)
				So(names(rows), ShouldResemble, []string{"Grace Hopper", "Alan Turing", "Barbara Liskov", "Ada Lovelace"})
				So(round(rows[0].Score), ShouldEqual, 1.0)
				So(round(rows[1].Score), ShouldEqual, 0.85)
				So(round(rows[2].Score), ShouldEqual, 0.5)
				So(rows[0].TitleCount, ShouldEqual, 2)
				So(rows[0].Collaborations, ShouldEqual, 2)
				So(rows[3], ShouldResemble, types.Recommendation{Name: "Ada Lovelace"})
			})
		})

		Convey("When someone outside the domain asks", func() {
			rows, err := svc.Recommend(ctx, "Edsger Dijkstra", "Machine Learning")

			Convey("Then ties are broken by name", func() {
				So(err, ShouldBeNil)
				So(names(rows), ShouldResemble, []string{
					"Alan Turing", "Grace Hopper", "Ada Lovelace", "Barbara Liskov", "Edsger Dijkstra",
				})
				So(round(rows[0].Score), ShouldEqual, 0.7667)
				So(round(rows[1].Score), ShouldEqual, 0.7667)
				So(round(rows[2].Score), ShouldEqual, 0.7)
				So(round(rows[3].Score), ShouldEqual, 0.2333)
			})
		})

		Convey("When the domain has no contributors", func() {
			rows, err := svc.Recommend(ctx, "Ada Lovelace", "quantum computing")

			Convey("Then only the self record is returned", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldResemble, []types.Recommendation{{Name: "Ada Lovelace"}})
			})
		})

		Convey("When the input is blank", func() {
			_, err1 := svc.Recommend(ctx, "  ", "machine learning")
			_, err2 := svc.Recommend(ctx, "Ada Lovelace", "")

			Convey("Then it is rejected as an invalid argument", func() {
				So(errors.Is(err1, service.ErrInvalidArgument), ShouldBeTrue)
				So(errors.Is(err2, service.ErrInvalidArgument), ShouldBeTrue)
			})
		})

		Convey("When a caller modifies the returned rows", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			first, err := svc.Recommend(ctx, "Ada Lovelace", "machine learning")
			So(err, ShouldBeNil)
			first[0].Name = "changed"
			second, err := svc.Recommend(ctx, "Ada Lovelace", "machine learning")

			Convey("Then later answers are unaffected", func() {
				So(err, ShouldBeNil)
				So(second[0].Name, ShouldEqual, "Grace Hopper")
			})
		})
	})

	Convey("Given invalid input and a store that must not be touched", t, func() {
		store := &failingStore{err: errors.New("boom")}
		svc := service.New(store)

		Convey("When recommending with an empty person", func() {
			_, err := svc.Recommend(ctx, "", "iot")

			Convey("Then the store is never queried", func() {
				So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
				So(store.calls, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Breaker(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store that keeps failing", t, func() {
		store := &failingStore{err: errors.New("connection refused")}
		svc := service.New(store, service.WithBreaker(2, time.Minute))

		Convey("When the failures reach the threshold", func() {
			_, err1 := svc.Recommend(ctx, "Ada Lovelace", "iot")
			_, err2 := svc.Recommend(ctx, "Ada Lovelace", "iot")
			_, err3 := svc.Recommend(ctx, "Ada Lovelace", "iot")

			Convey("Then further calls are rejected without reaching the store", func() {
				So(err1, ShouldNotBeNil)
				So(errors.Is(err1, service.ErrUnavailable), ShouldBeFalse)
				So(err2, ShouldNotBeNil)
				So(errors.Is(err3, service.ErrUnavailable), ShouldBeTrue)
				So(store.calls, ShouldEqual, 2)
				So(svc.GetStats()["breakerState"], ShouldEqual, "open")
			})
		})
	})

	Convey("Given a store that reports misses", t, func() {
		store := &failingStore{err: repository.ErrNotFound}
		svc := service.New(store, service.WithBreaker(1, time.Minute))

		Convey("When it misses repeatedly", func() {
			_, err1 := svc.Recommend(ctx, "Ada Lovelace", "iot")
			_, err2 := svc.Recommend(ctx, "Ada Lovelace", "iot")

			Convey("Then the breaker stays closed", func() {
				So(errors.Is(err1, service.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err2, service.ErrNotFound), ShouldBeTrue)
				So(store.calls, ShouldEqual, 2)
				So(svc.GetStats()["breakerState"], ShouldEqual, "closed")
			})
		})
	})
}

func TestService_Graphs(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service over the sample faculty", t, func() {
		svc := service.New(sampleStore())

		Convey("When building the machine learning graph", func() {
			g, err := svc.DomainGraph(ctx, "machine learning")

			Convey("Then direct and indirect experts link to the domain", func() {
				So(err, ShouldBeNil)
				So(len(g.Nodes), ShouldEqual, 5)
				So(len(g.Edges), ShouldEqual, 4)
				So(g.Nodes[1].Label, ShouldEqual, "machine learning")
			})
		})

		Convey("When building Ada's collaboration graph", func() {
			g, err := svc.CollaborationGraph(ctx, "Ada Lovelace")

			Convey("Then edges carry the joint article counts", func() {
				So(err, ShouldBeNil)
				So(len(g.Nodes), ShouldEqual, 4)
				So(len(g.Edges), ShouldEqual, 3)
				So(g.Edges[0].Count, ShouldEqual, 2)
				So(g.Edges[0].CollaborationID, ShouldEqual, "collab:Ada Lovelace|Grace Hopper")
			})

			Convey("And the edge id resolves to its titles", func() {
				titles, err := svc.CollaborationTitles(ctx, g.Edges[0].CollaborationID)
				So(err, ShouldBeNil)
				So(titles, ShouldResemble, []string{"Neural Networks for Sensor Fusion", "Learning to Route Packets"})
			})
		})

		Convey("When building a department graph", func() {
			g, err := svc.DepartmentGraph(ctx, "ECE")

			Convey("Then domain nodes count the department's experts", func() {
				So(err, ShouldBeNil)
				counts := map[string]int{}
				for _, n := range g.Nodes {
					if n.Type == "Domain" {
						counts[n.Label] = n.Count
					}
				}
				So(counts, ShouldResemble, map[string]int{"iot": 2, "machine learning": 1})
			})
		})

		Convey("When listing department experts", func() {
			res, err := svc.DepartmentExperts(ctx, "CSE", "Machine Learning")

			Convey("Then direct and indirect experts are split", func() {
				So(err, ShouldBeNil)
				So(res.DirectCount, ShouldEqual, 2)
				So(res.IndirectCount, ShouldEqual, 1)
				So(res.IndirectRecords[0].Name, ShouldEqual, "Alan Turing")
			})
		})

		Convey("When arguments are missing", func() {
			_, err1 := svc.DomainGraph(ctx, " ")
			_, err2 := svc.DepartmentExperts(ctx, "CSE", "")
			_, err3 := svc.DomainTrends(ctx, []string{"", " "})

			Convey("Then each call is rejected", func() {
				So(errors.Is(err1, service.ErrInvalidArgument), ShouldBeTrue)
				So(errors.Is(err2, service.ErrInvalidArgument), ShouldBeTrue)
				So(errors.Is(err3, service.ErrInvalidArgument), ShouldBeTrue)
			})
		})

		Convey("When an id is unknown", func() {
			_, err1 := svc.DomainTitles(ctx, "domain:nope")
			_, err2 := svc.CollaborationTitles(ctx, "collab:nobody")

			Convey("Then it maps to not found", func() {
				So(errors.Is(err1, service.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err2, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When listing people and domains", func() {
			people, err := svc.DepartmentPeople(ctx, "nowhere")
			So(err, ShouldBeNil)
			So(people, ShouldNotBeNil)
			So(people, ShouldBeEmpty)

			domains, err := svc.Domains(ctx)
			So(err, ShouldBeNil)
			So(domains, ShouldContain, "quantum computing")
		})

		Convey("When asking for trends", func() {
			rows, err := svc.DomainTrends(ctx, []string{"security"})

			Convey("Then yearly counts are returned", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldNotBeEmpty)
				total := 0
				for _, r := range rows {
					total += r.Count
				}
				So(total, ShouldEqual, 2)
			})
		})
	})
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that has not started", t, func() {
		svc := service.New(sampleStore())

		Convey("Then search and refresh are unavailable", func() {
			_, err := svc.Search(ctx, "neural", 1, 10)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Similar(ctx, "a1", nil, 5)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.RefreshIndex(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})

	Convey("Given a started service", t, func() {
		svc := service.New(sampleStore(),
			service.WithWorkerCount(2),
			service.WithRefreshInterval(0),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		indexed := waitFor(5*time.Second, func() bool {
			hits, err := articlesOf(svc.Search(ctx, "firmware", 1, 10))
			st, _ := svc.GetStats()["search"].(search.Stats)
			return err == nil && len(hits) == 1 && st.Documents == 6
		})
		So(indexed, ShouldBeTrue)

		Convey("When searching by keyword", func() {
			hits, err := articlesOf(svc.Search(ctx, "neural", 1, 10))

			Convey("Then matching articles are returned", func() {
				So(err, ShouldBeNil)
				So(hits, ShouldNotBeEmpty)
				So(hits[0].ID, ShouldEqual, "a1")
			})
		})

		Convey("When searching part of a keyword", func() {
			hits, err := articlesOf(svc.Search(ctx, "learn", 1, 10))

			Convey("Then the substring matches inside keywords", func() {
				So(err, ShouldBeNil)
				So(len(hits), ShouldEqual, 1)
				So(hits[0].ID, ShouldEqual, "a4")
			})
		})

		Convey("When paging", func() {
			So(waitFor(5*time.Second, func() bool {
				res, err := svc.Search(ctx, "devices", 1, 10)
				return err == nil && res.Total == 2
			}), ShouldBeTrue)
			res, err := svc.Search(ctx, "devices", 2, 1)

			Convey("Then the second page holds the second match", func() {
				So(err, ShouldBeNil)
				So(res.Page, ShouldEqual, 2)
				So(res.Total, ShouldEqual, uint64(2))
				So(len(res.Articles), ShouldEqual, 1)
			})
		})

		Convey("When asking for similar articles", func() {
			So(waitFor(5*time.Second, func() bool {
				hits, err := svc.Similar(ctx, "a5", nil, 5)
				return err == nil && len(hits) == 1
			}), ShouldBeTrue)
			hits, err := svc.Similar(ctx, "a5", nil, 5)

			Convey("Then articles sharing its terms are returned", func() {
				So(err, ShouldBeNil)
				So(hits[0].ID, ShouldEqual, "a3")
			})

			Convey("Then excluded ids are left out", func() {
				hits, err := svc.Similar(ctx, "a5", []string{"a3"}, 5)
				So(err, ShouldBeNil)
				So(hits, ShouldBeEmpty)
			})

			Convey("Then an unknown id is not found", func() {
				_, err := svc.Similar(ctx, "missing", nil, 5)
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the query is empty", func() {
			_, err := svc.Search(ctx, "  ", 1, 10)

			Convey("Then it is an invalid argument", func() {
				So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
			})
		})

		Convey("When refreshing again", func() {
			report, err := svc.RefreshIndex(ctx)

			Convey("Then every article is already indexed", func() {
				So(err, ShouldBeNil)
				So(report.Fetched, ShouldEqual, 6)
				So(report.Duplicates, ShouldEqual, 6)
				So(report.Enqueued, ShouldEqual, 0)
			})
		})

		Convey("When reading the stats", func() {
			stats := svc.GetStats()

			Convey("Then the pipeline is reported", func() {
				So(stats["started"], ShouldEqual, true)
				So(stats["indexedIds"], ShouldEqual, int64(6))
				So(stats, ShouldContainKey, "search")
				So(stats, ShouldContainKey, "workers")
			})
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		store := sampleStore()
		svc := service.New(store, service.WithRefreshInterval(10*time.Millisecond))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When starting twice", func() {
			So(svc.Start(ctx), ShouldBeNil)
			svc.Stop()
		})

		Convey("When stopping", func() {
			svc.Stop()

			Convey("Then it can be stopped again and search is unavailable", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, err := svc.Search(ctx, "neural", 1, 5)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("And recommendations still work without the cache", func() {
				rows, err := svc.Recommend(ctx, "Ada Lovelace", "iot")
				So(err, ShouldBeNil)
				So(rows[len(rows)-1].Name, ShouldEqual, "Ada Lovelace")
			})
		})

		Convey("When the store is closed", func() {
			defer svc.Stop()
			So(svc.Ready(ctx), ShouldBeNil)
			So(store.Close(ctx), ShouldBeNil)

			Convey("Then the service is not ready", func() {
				So(errors.Is(svc.Ready(ctx), service.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestService_StartDoesNotBlockQueries(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service whose initial index refresh is slow", t, func() {
		store := &slowArticlesStore{
			Store:   sampleStore(),
			entered: make(chan struct{}),
			release: make(chan struct{}),
		}
		svc := service.New(store, service.WithRefreshInterval(0))
		started := make(chan error, 1)
		go func() { started <- svc.Start(ctx) }()
		<-store.entered

		Convey("When recommendations are requested during the refresh", func() {
			done := make(chan error, 1)
			go func() {
				_, err := svc.Recommend(ctx, "Ada Lovelace", "machine learning")
				done <- err
			}()

			Convey("Then they are answered before the refresh ends", func() {
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(time.Second):
					So("recommend blocked by Start", ShouldBeEmpty)
				}
				So(svc.GetStats()["started"], ShouldEqual, true)

				close(store.release)
				So(<-started, ShouldBeNil)
				So(waitFor(time.Second, func() bool { return svc.GetStats()["indexedIds"] == int64(6) }), ShouldBeTrue)
				svc.Stop()
			})
		})
	})
}
