package core_test

import (
	"errors"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aiwolfdial/studybuddy/core"
	"github.com/aiwolfdial/studybuddy/logic"
	"github.com/aiwolfdial/studybuddy/model"
)

var _ = Describe("SessionStore", func() {
	It("never holds more sessions than the limit under concurrent creates", func() {
		config := model.DefaultConfig()
		store := core.NewSessionStore(3)
		oracle := &refereeOracle{}

		var rejected atomic.Int64
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				err := store.Add(logic.NewController(&config, oracle, nil))
				if errors.Is(err, core.ErrTooManySessions) {
					rejected.Add(1)
					return
				}
				Expect(err).ToNot(HaveOccurred())
			}()
		}
		wg.Wait()

		Expect(store.Len()).To(Equal(3))
		Expect(rejected.Load()).To(Equal(int64(29)))
		count := 0
		store.Range(func(*logic.Controller) bool {
			count++
			return true
		})
		Expect(count).To(Equal(3))
	})

	It("frees a slot when a session is removed", func() {
		config := model.DefaultConfig()
		store := core.NewSessionStore(1)
		first := logic.NewController(&config, &refereeOracle{}, nil)
		Expect(store.Add(first)).To(Succeed())
		Expect(store.Add(logic.NewController(&config, &refereeOracle{}, nil))).To(MatchError(core.ErrTooManySessions))

		removed, err := store.Remove(first.ID)
		Expect(err).ToNot(HaveOccurred())
		Expect(removed).To(BeIdenticalTo(first))
		_, err = store.Remove(first.ID)
		Expect(err).To(MatchError(core.ErrSessionNotFound))
		Expect(store.Add(logic.NewController(&config, &refereeOracle{}, nil))).To(Succeed())
	})
})
