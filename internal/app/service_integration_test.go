package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	service "github.com/okian/expertgraph/internal/app"
	"github.com/okian/expertgraph/internal/adapters/repository"
	. "github.com/smartystreets/goconvey/convey"
)

var bulkDomains = []string{"machine learning", "iot", "security", "databases", "graphics"}

// bulkFixture builds a faculty of people authors writing articles in
// overlapping groups of three.
func bulkFixture(people, articles int) *repository.Fixture {
	fx := &repository.Fixture{Domains: bulkDomains}
	for i := 0; i < people; i++ {
		fx.People = append(fx.People, repository.FixturePerson{
			Name:       fmt.Sprintf("Person %02d", i),
			Department: fmt.Sprintf("Dept %d", i%3),
			Domains:    []string{bulkDomains[i%len(bulkDomains)]},
			ExpertID:   int64(1000 + i),
		})
	}
	for i := 0; i < articles; i++ {
		fx.Articles = append(fx.Articles, repository.FixtureArticle{
			ID:    fmt.Sprintf("bulk-%03d", i),
			Title: fmt.Sprintf("Article %03d on topic %d", i, i%7),
			Authors: []string{
				fmt.Sprintf("Person %02d", i%people),
				fmt.Sprintf("Person %02d", (i+1)%people),
				fmt.Sprintf("Person %02d", (i*7)%people),
			},
			Domains:  []string{bulkDomains[i%len(bulkDomains)]},
			Keywords: []string{fmt.Sprintf("topic%d", i%7)},
			Year:     2015 + i%10,
		})
	}
	return fx
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over a larger faculty with a small index queue", t, func() {
		const articles = 300
		svc := service.New(repository.NewMemoryStore(bulkFixture(20, articles)),
			service.WithWorkerCount(4),
			service.WithQueueSize(50),
			service.WithDedupeSize(1000),
			service.WithRefreshInterval(0),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When refreshing until the index has caught up", func() {
			var last service.RefreshReport
			done := waitFor(10*time.Second, func() bool {
				report, err := svc.RefreshIndex(ctx)
				if err != nil {
					return false
				}
				last = report
				return report.Duplicates == articles
			})

			Convey("Then every article is searchable exactly once", func() {
				So(done, ShouldBeTrue)
				So(last.Fetched, ShouldEqual, articles)
				So(last.Enqueued, ShouldEqual, 0)

				indexed := waitFor(5*time.Second, func() bool {
					hits, err := articlesOf(svc.Search(ctx, "topic3", 1, 200))
					return err == nil && len(hits) == 43
				})
				So(indexed, ShouldBeTrue)
			})
		})

		Convey("When many callers ask for recommendations concurrently", func() {
			var wg sync.WaitGroup
			errs := make(chan error, 100)
			for i := 0; i < 100; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					person := fmt.Sprintf("Person %02d", i%20)
					rows, err := svc.Recommend(ctx, person, bulkDomains[i%len(bulkDomains)])
					if err != nil {
						errs <- err
						return
					}
					if n := len(rows); n == 0 || n > 6 || rows[n-1].Name != person {
						errs <- fmt.Errorf("unexpected rows for %s: %v", person, rows)
						return
					}
					for j := 1; j < len(rows)-1; j++ {
						if rows[j].Score > rows[j-1].Score {
							errs <- fmt.Errorf("rows out of order for %s: %v", person, rows)
							return
						}
					}
				}(i)
			}
			wg.Wait()
			close(errs)

			Convey("Then every answer is well formed", func() {
				var failures []error
				for err := range errs {
					failures = append(failures, err)
				}
				So(failures, ShouldBeEmpty)
			})
		})

		Convey("When stopping and starting again", func() {
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then the pipeline is rebuilt", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats, ShouldContainKey, "queueLength")
			})
		})
	})
}
