package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aiwolfdial/studybuddy/core"
	"github.com/aiwolfdial/studybuddy/model"
	"github.com/aiwolfdial/studybuddy/service"
	"github.com/aiwolfdial/studybuddy/util"
)

var secretMafia = regexp.MustCompile(`(?m)^  - (\d+): [^,]+, Mafia, alive$`)

// refereeOracle keeps every night quiet and has the town find the mafia on the first
// day, reading the seat from the secret role table it is given.
type refereeOracle struct {
	failing atomic.Bool
}

func (r *refereeOracle) Narrate(_ context.Context, prompt string, _ []model.ConversationTurn) (string, error) {
	if r.failing.Load() {
		return "", errors.New("upstream unavailable")
	}
	if strings.Contains(prompt, "- Current Phase: night") {
		return `{"narration":"Ночь прошла спокойно.","killedId":null,"savedId":null,"votedOutId":null,"winner":null}`, nil
	}
	match := secretMafia.FindStringSubmatch(prompt)
	if match == nil {
		return "", errors.New("no mafia in prompt")
	}
	return fmt.Sprintf(`{"narration":"Мафия изгнана.","killedId":null,"savedId":null,"votedOutId":%s,"winner":"Civilians"}`, match[1]), nil
}

func (r *refereeOracle) Ask(_ context.Context, prompt string) (string, error) {
	if r.failing.Load() {
		return "", fmt.Errorf("%w: quota", service.ErrAssistant)
	}
	return "Совет: " + strconv.Itoa(len(prompt)), nil
}

func (r *refereeOracle) Chat(_ context.Context, messages []model.ChatMessage) (string, error) {
	if r.failing.Load() {
		return "", fmt.Errorf("%w: quota", service.ErrAssistant)
	}
	return fmt.Sprintf("Ответ на %d сообщений", len(messages)), nil
}

type brokenSheet struct{}

func (brokenSheet) Fetch(context.Context) ([]model.SubjectGrade, error) {
	return nil, errors.New("sheet unavailable")
}

type snapshotResponse struct {
	ID     string          `json:"id"`
	GameID string          `json:"gameId"`
	Status string          `json:"status"`
	Busy   bool            `json:"busy"`
	Error  string          `json:"error"`
	Turns  int             `json:"turns"`
	State  model.GameState `json:"state"`
}

type errorResponse struct {
	Error string           `json:"error"`
	Game  snapshotResponse `json:"game"`
}

const secret = "test-secret"

var _ = Describe("Server", func() {
	var ctx context.Context
	var client *resty.Client
	var oracle *refereeOracle
	var server *core.Server
	var baseURL string
	var config model.Config

	BeforeEach(func() {
		var cancelFn context.CancelFunc
		ctx, cancelFn = context.WithTimeout(context.Background(), time.Minute)
		DeferCleanup(cancelFn)

		config = model.DefaultConfig()
		config.Server.Authentication.Enable = true
		config.Server.Authentication.Secret = secret
		config.Metrics.Enable = true
		config.Mafia.MaxSessions = 2
		config.Chat.MaxSessions = 2
		config.Oracle.Timeout = 10 * time.Second

		oracle = &refereeOracle{}
		server = core.NewServer(config, oracle, service.NewMemoryScheduleStore(), brokenSheet{})
		seed := uint64(0)
		server.SetRandSource(func() *rand.Rand {
			seed++
			return rand.New(rand.NewPCG(seed, seed))
		})
		httpServer := httptest.NewServer(server.Router())
		DeferCleanup(httpServer.Close)
		baseURL = httpServer.URL

		client = resty.New().SetBaseURL(baseURL)
	})

	createGame := func() snapshotResponse {
		var snapshot snapshotResponse
		resp, err := client.R().SetContext(ctx).SetResult(&snapshot).Post("/api/games")
		Expect(err).ToNot(HaveOccurred(), "creating a game should not fail")
		Expect(resp.StatusCode()).To(Equal(http.StatusCreated), "creating a game should report 201: %s", resp.String())
		return snapshot
	}

	mafiaSeat := func(id string) int {
		controller, err := server.Sessions().Get(id)
		Expect(err).ToNot(HaveOccurred())
		for _, player := range controller.State().Players {
			if player.Role == model.R_MAFIA {
				return player.ID
			}
		}
		Fail("no mafia dealt")
		return 0
	}

	It("reports health and the server header", func() {
		resp, err := client.R().SetContext(ctx).Get("/healthz")
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.StatusCode()).To(Equal(http.StatusOK))
		Expect(resp.Header().Get("Server")).To(HavePrefix("studybuddy/"))

		resp, err = client.R().SetContext(ctx).Get("/metrics")
		Expect(err).ToNot(HaveOccurred())
		Expect(resp.String()).To(ContainSubstring("studybuddy_mafia_active_sessions"))
	})

	Describe("Mafia", func() {
		It("plays a game through to a civilian win", func() {
			snapshot := createGame()
			Expect(snapshot.Status).To(Equal("awaiting_human_vote"))
			Expect(snapshot.State.Phase).To(Equal(model.P_DAY))
			Expect(snapshot.State.Players).To(HaveLen(5))
			for _, player := range snapshot.State.Players {
				if player.IsUser {
					Expect(player.Role).To(Equal(model.R_CIVILIAN), "the human always plays a civilian")
				} else {
					Expect(player.Role).To(Equal(model.R_NONE), "other roles stay hidden during the game")
				}
			}
			Expect(snapshot.State.History).To(BeEmpty(), "the narrator history never leaves the server")

			resp, err := client.R().SetContext(ctx).SetBody(map[string]any{"votedForId": 1}).Post("/api/games/" + snapshot.ID + "/vote")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest), "voting for yourself is rejected")

			var ended snapshotResponse
			resp, err = client.R().SetContext(ctx).
				SetBody(map[string]any{"type": "vote", "votedForId": mafiaSeat(snapshot.ID)}).
				SetResult(&ended).
				Post("/api/games/" + snapshot.ID + "/vote")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK), resp.String())
			Expect(ended.Status).To(Equal("ended"))
			Expect(ended.State.Winner).To(Equal(model.T_CIVILIANS))
			Expect(ended.Turns).To(Equal(2))
			Expect(ended.State.Log[len(ended.State.Log)-1].Text).To(Equal("Мафия изгнана."))

			resp, err = client.R().SetContext(ctx).Post("/api/games/" + snapshot.ID + "/advance")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusConflict), "an ended game cannot advance")

			var restarted snapshotResponse
			resp, err = client.R().SetContext(ctx).SetResult(&restarted).Post("/api/games/" + snapshot.ID + "/restart")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			Expect(restarted.Status).To(Equal("awaiting_human_vote"))
			Expect(restarted.State.Winner).To(Equal(model.T_NONE))
			Expect(restarted.ID).To(Equal(snapshot.ID), "the session keeps its id")
			Expect(restarted.GameID).ToNot(Equal(ended.GameID), "each dealt game is recorded separately")
		})

		It("keeps the state and reports the error when the narrator fails", func() {
			oracle.failing.Store(true)
			var failed errorResponse
			resp, err := client.R().SetContext(ctx).SetError(&failed).Post("/api/games")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusBadGateway))
			Expect(failed.Game.Status).To(Equal("awaiting_oracle"))
			Expect(failed.Game.Error).ToNot(BeEmpty())
			Expect(failed.Game.State.Phase).To(Equal(model.P_NIGHT))

			resp, err = client.R().SetContext(ctx).Post("/api/games/" + failed.Game.ID + "/vote")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest), "a vote without a body is rejected")

			var dismissed snapshotResponse
			_, err = client.R().SetContext(ctx).SetResult(&dismissed).Post("/api/games/" + failed.Game.ID + "/dismiss")
			Expect(err).ToNot(HaveOccurred())
			Expect(dismissed.Error).To(BeEmpty())

			oracle.failing.Store(false)
			var advanced snapshotResponse
			resp, err = client.R().SetContext(ctx).SetResult(&advanced).Post("/api/games/" + failed.Game.ID + "/advance")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			Expect(advanced.Status).To(Equal("awaiting_human_vote"))
		})

		It("limits and removes sessions", func() {
			first := createGame()
			createGame()
			resp, err := client.R().SetContext(ctx).Post("/api/games")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusTooManyRequests))

			resp, err = client.R().SetContext(ctx).Delete("/api/games/" + first.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusNoContent))
			Expect(server.Sessions().Len()).To(Equal(1))

			resp, err = client.R().SetContext(ctx).Get("/api/games/" + first.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusNotFound))

			createGame()
		})

		It("streams game packets over a websocket", func() {
			snapshot := createGame()
			wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/games/" + snapshot.ID
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
			Expect(err).ToNot(HaveOccurred())
			DeferCleanup(conn.Close)

			var initial snapshotResponse
			Expect(conn.ReadJSON(&initial)).To(Succeed())
			Expect(initial.ID).To(Equal(snapshot.ID))

			_, err = client.R().SetContext(ctx).
				SetBody(map[string]any{"votedForId": mafiaSeat(snapshot.ID)}).
				Post("/api/games/" + snapshot.ID + "/vote")
			Expect(err).ToNot(HaveOccurred())

			events := make([]string, 0)
			Expect(conn.SetReadDeadline(time.Now().Add(10 * time.Second))).To(Succeed())
			for {
				var packet model.BroadcastPacket
				Expect(conn.ReadJSON(&packet)).To(Succeed())
				Expect(packet.Id).To(Equal(snapshot.ID))
				events = append(events, packet.Event)
				if packet.Event == "終了" {
					Expect(packet.Winner).To(Equal(model.T_CIVILIANS))
					break
				}
			}
			Expect(events).To(ContainElement("処理中"))
		})
	})

	Describe("Schedule", func() {
		It("serves the seeded weeks", func() {
			var days []model.DaySchedule
			resp, err := client.R().SetContext(ctx).SetResult(&days).Get("/api/schedule/1")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			Expect(days).To(HaveLen(5))
			Expect(days[0].Day).To(Equal("Понедельник"))

			for _, week := range []string{"3", "x"} {
				resp, err = client.R().SetContext(ctx).Get("/api/schedule/" + week)
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.StatusCode()).To(Equal(http.StatusNotFound), "week %s does not exist", week)
			}
		})

		It("requires an admin token to edit", func() {
			item := model.ScheduleItem{Subject: "Физика", Time: "15:00 - 16:30"}
			resp, err := client.R().SetContext(ctx).SetBody(item).Post("/api/schedule/1/Среда")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusUnauthorized))

			token, err := util.NewAdminToken(secret, "test", time.Hour)
			Expect(err).ToNot(HaveOccurred())
			admin := client.R().SetContext(ctx).SetAuthToken(token)

			var created model.ScheduleItem
			resp, err = admin.SetBody(item).SetResult(&created).Post("/api/schedule/1/Среда")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusCreated), resp.String())
			Expect(created.ID).ToNot(BeEmpty())

			item.Subject = " "
			resp, err = client.R().SetContext(ctx).SetAuthToken(token).SetBody(item).Put("/api/schedule/1/Среда/" + created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))

			item.Subject = "Химия"
			resp, err = client.R().SetContext(ctx).SetQueryParam("token", token).SetBody(item).Put("/api/schedule/1/Среда/" + created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))

			resp, err = client.R().SetContext(ctx).SetAuthToken(token).Delete("/api/schedule/1/Среда/" + created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusNoContent))

			resp, err = client.R().SetContext(ctx).SetAuthToken(token).Delete("/api/schedule/1/Среда/" + created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusNotFound))
		})

		It("asks the assistant about homework and the week", func() {
			var answer map[string]string
			resp, err := client.R().SetContext(ctx).SetResult(&answer).Post("/api/schedule/1/Понедельник/1/help")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			Expect(answer["text"]).To(HavePrefix("Совет:"))

			resp, err = client.R().SetContext(ctx).Post("/api/schedule/1/Понедельник/missing/help")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusNotFound))

			for _, kind := range []string{"plan", "summary"} {
				resp, err = client.R().SetContext(ctx).Post("/api/schedule/2/" + kind)
				Expect(err).ToNot(HaveOccurred())
				Expect(resp.StatusCode()).To(Equal(http.StatusOK), kind)
			}

			oracle.failing.Store(true)
			resp, err = client.R().SetContext(ctx).Post("/api/schedule/2/plan")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusBadGateway))
		})
	})

	Describe("Grades", func() {
		It("falls back to the built-in grades with a warning", func() {
			var report model.GradeReport
			resp, err := client.R().SetContext(ctx).SetResult(&report).Get("/api/grades")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
			Expect(report.Warning).To(Equal(service.GradeFallbackWarning))
			Expect(report.Grades).To(HaveLen(len(service.BuiltinGrades())))
			Expect(report.Achievements).To(HaveLen(3))
			Expect(strconv.ParseFloat(report.Average, 64)).To(BeNumerically(">", 0))

			resp, err = client.R().SetContext(ctx).Post("/api/grades/summary")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))
		})
	})

	Describe("Chat", func() {
		It("keeps the conversation", func() {
			var created struct {
				ID       string              `json:"id"`
				Messages []model.ChatMessage `json:"messages"`
			}
			resp, err := client.R().SetContext(ctx).SetResult(&created).Post("/api/chat")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusCreated))
			Expect(created.Messages).To(BeEmpty())

			resp, err = client.R().SetContext(ctx).SetBody(map[string]string{"text": "Привет"}).Post("/api/chat/" + created.ID + "/messages")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusOK))

			resp, err = client.R().SetContext(ctx).SetBody(map[string]string{"text": ""}).Post("/api/chat/" + created.ID + "/messages")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusBadRequest))

			oracle.failing.Store(true)
			resp, err = client.R().SetContext(ctx).SetBody(map[string]string{"text": "Ещё"}).Post("/api/chat/" + created.ID + "/messages")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusBadGateway))

			var history struct {
				Messages []model.ChatMessage `json:"messages"`
			}
			resp, err = client.R().SetContext(ctx).Get("/api/chat/" + created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(json.Unmarshal(resp.Body(), &history)).To(Succeed())
			Expect(history.Messages).To(HaveLen(4))
			Expect(history.Messages[1].Text).To(Equal("Ответ на 1 сообщений"))
			Expect(history.Messages[3].Text).To(Equal(service.ChatErrorMessage))

			resp, err = client.R().SetContext(ctx).Get("/api/chat/missing")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusNotFound))
		})

		It("limits and removes chats", func() {
			var created struct {
				ID string `json:"id"`
			}
			resp, err := client.R().SetContext(ctx).SetResult(&created).Post("/api/chat")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusCreated))
			resp, err = client.R().SetContext(ctx).Post("/api/chat")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusCreated))
			resp, err = client.R().SetContext(ctx).Post("/api/chat")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusTooManyRequests))

			resp, err = client.R().SetContext(ctx).Delete("/api/chat/" + created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusNoContent))
			resp, err = client.R().SetContext(ctx).Get("/api/chat/" + created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusNotFound))
			resp, err = client.R().SetContext(ctx).Delete("/api/chat/" + created.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusNotFound))

			resp, err = client.R().SetContext(ctx).Post("/api/chat")
			Expect(err).ToNot(HaveOccurred())
			Expect(resp.StatusCode()).To(Equal(http.StatusCreated))
		})
	})
})
