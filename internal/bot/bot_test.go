package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leonid6372/upbit-paper/internal/catalog"
	"github.com/leonid6372/upbit-paper/internal/common/config"
	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/internal/common/repositories/memory"
	"github.com/leonid6372/upbit-paper/internal/ledger"
	"github.com/leonid6372/upbit-paper/internal/ticker"
	"github.com/leonid6372/upbit-paper/internal/trade"
	"github.com/leonid6372/upbit-paper/pkg/dictionary"
	"github.com/shopspring/decimal"
	"gopkg.in/telebot.v4"
)

const chatID = 42

type stubUpbit struct{}

func (stubUpbit) GetTickers(_ context.Context, codes []string) ([]*domain.Ticker, error) {
	var res []*domain.Ticker
	for _, code := range codes {
		if code == "KRW-BTC" {
			res = append(res, &domain.Ticker{Code: code, TradePrice: decimal.NewFromInt(50_000_000)})
		}
	}

	return res, nil
}

func (stubUpbit) GetMarkets(context.Context) ([]*domain.Market, error) {
	return []*domain.Market{
		{Code: "KRW-BTC", KoreanName: "비트코인", EnglishName: "Bitcoin"},
		{Code: "KRW-ETH", KoreanName: "이더리움", EnglishName: "Ethereum"},
	}, nil
}

// telegram fakes the Bot API: every call succeeds and sent texts are recorded.
type telegram struct {
	mu    sync.Mutex
	texts []string
}

func (tg *telegram) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
		return
	}

	var params map[string]any
	_ = json.NewDecoder(r.Body).Decode(&params)

	text, _ := params["text"].(string)

	tg.mu.Lock()
	tg.texts = append(tg.texts, text)
	tg.mu.Unlock()

	_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
}

// last returns the most recent text and forgets everything recorded so far.
func (tg *telegram) last(t *testing.T) string {
	t.Helper()

	tg.mu.Lock()
	defer tg.mu.Unlock()

	if len(tg.texts) == 0 {
		t.Fatal("no message sent")
	}

	text := tg.texts[len(tg.texts)-1]
	tg.texts = nil

	return text
}

func (tg *telegram) count() int {
	tg.mu.Lock()
	defer tg.mu.Unlock()

	return len(tg.texts)
}

type testEnv struct {
	bot      *Bot
	tg       *telegram
	registry *ticker.Registry
	ledger   *ledger.Ledger
	chats    domain.ChatsRepository
}

func newTestEnv(t *testing.T, allowedChats ...int64) *testEnv {
	t.Helper()

	tg := &telegram{}
	srv := httptest.NewServer(tg)
	t.Cleanup(srv.Close)

	registry := ticker.NewRegistry(context.Background(), stubUpbit{})
	t.Cleanup(registry.Close)

	l, err := ledger.New(decimal.NewFromInt(ledger.DefaultOpeningBalance))
	if err != nil {
		t.Fatalf("ledger.New: %v", err)
	}

	markets := catalog.New(stubUpbit{})

	service := trade.NewService(l, memory.NewOperationsRepository(), registry.Cache(), markets)
	service.WatchPositions(registry)

	dict, err := dictionary.New("../../dictionary.json")
	if err != nil {
		t.Fatalf("dictionary.New: %v", err)
	}

	chats := memory.NewChatsRepository()

	cfg := &config.Bot{APIKey: "test-token", Timeout: time.Second, AllowedChats: allowedChats}

	b, err := New(context.Background(), cfg, registry, service, markets, chats, dict, func(s *telebot.Settings) {
		s.URL = srv.URL
		s.Offline = true
		s.Synchronous = true
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	return &testEnv{bot: b, tg: tg, registry: registry, ledger: l, chats: chats}
}

func (e *testEnv) text(text string) {
	e.bot.Telebot.ProcessUpdate(telebot.Update{
		ID: 1,
		Message: &telebot.Message{
			ID:     1,
			Text:   text,
			Chat:   &telebot.Chat{ID: chatID, Type: telebot.ChatPrivate},
			Sender: &telebot.User{ID: chatID, LanguageCode: "en"},
		},
	})
}

func (e *testEnv) press(unique string, args ...string) {
	e.bot.Telebot.ProcessUpdate(telebot.Update{
		ID: 2,
		Callback: &telebot.Callback{
			ID:     "1",
			Sender: &telebot.User{ID: chatID, LanguageCode: "en"},
			Message: &telebot.Message{
				ID:   2,
				Chat: &telebot.Chat{ID: chatID, Type: telebot.ChatPrivate},
			},
			Data: "\f" + unique + "|" + strings.Join(args, "|"),
		},
	})
}

func (e *testEnv) warm(t *testing.T) {
	t.Helper()

	e.registry.Subscribe("test", []string{"KRW-BTC"})

	deadline := time.Now().Add(2 * time.Second)
	for e.registry.Cache().Status() != ticker.StatusConnected {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the first batch")
		}

		time.Sleep(time.Millisecond)
	}
}

func assertContains(t *testing.T, text string, want ...string) {
	t.Helper()

	for _, w := range want {
		if !strings.Contains(text, w) {
			t.Errorf("%q does not contain %q", text, w)
		}
	}
}

func TestStart(t *testing.T) {
	e := newTestEnv(t)

	e.text("/start")

	assertContains(t, e.tg.last(t), "Welcome", "10 000 000")
}

func TestPriceWatchesMarket(t *testing.T) {
	e := newTestEnv(t)

	e.text("/price krw-btc")

	if !slices.Contains(e.registry.EffectiveSet(), "KRW-BTC") {
		t.Fatalf("KRW-BTC not subscribed: %v", e.registry.EffectiveSet())
	}

	e.warm(t)
	e.text("/price KRW-BTC")

	assertContains(t, e.tg.last(t), "KRW-BTC", "50 000 000")
}

func TestPriceRejectsUnlistedMarket(t *testing.T) {
	e := newTestEnv(t)

	e.text("/price krw-foo")

	assertContains(t, e.tg.last(t), "KRW-FOO is not a listed market")

	if got := e.registry.EffectiveSet(); len(got) != 0 {
		t.Errorf("unlisted market subscribed: %v", got)
	}

	if e.registry.Running() {
		t.Error("polling started for an unlisted market")
	}
}

func TestConcurrentWatchesKeepEveryMarket(t *testing.T) {
	e := newTestEnv(t)

	codes := make([]string, 32)
	for i := range codes {
		codes[i] = fmt.Sprintf("KRW-C%02d", i)
	}

	var wg sync.WaitGroup
	for _, code := range codes {
		code := code
		wg.Add(1)

		go func() {
			defer wg.Done()
			e.bot.watch(code)
		}()
	}

	wg.Wait()

	got := e.registry.EffectiveSet()
	for _, code := range codes {
		if !slices.Contains(got, code) {
			t.Errorf("%s missing from the effective set %v", code, got)
		}
	}
}

func TestOrderCommands(t *testing.T) {
	e := newTestEnv(t)
	e.warm(t)

	e.text("/buy KRW-BTC 0.1")

	assertContains(t, e.tg.last(t), "✅", "KRW-BTC", "5 000 000")

	if p, ok := e.ledger.Position("KRW-BTC"); !ok || !p.Quantity.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("unexpected position %+v, held %v", p, ok)
	}

	e.text("/sell KRW-BTC 5")
	assertContains(t, e.tg.last(t), "You do not hold that much KRW-BTC")

	e.text("/buy KRW-ETH 1")
	assertContains(t, e.tg.last(t), "No price for KRW-ETH")

	e.text("/buy KRW-FOO 1")
	assertContains(t, e.tg.last(t), "KRW-FOO is not a listed market")

	e.text("/buy KRW-BTC")
	assertContains(t, e.tg.last(t), "Usage")

	e.text("/buy KRW-BTC lots")
	assertContains(t, e.tg.last(t), "not a valid quantity")
}

func TestOrderButtonAsksForQuantity(t *testing.T) {
	e := newTestEnv(t)
	e.warm(t)

	e.press(cbkBuy, "KRW-BTC")
	assertContains(t, e.tg.last(t), "KRW-BTC", "buy")

	e.text("0.2")
	assertContains(t, e.tg.last(t), "✅")

	e.text("0.2")
	assertContains(t, e.tg.last(t), "Unknown command")

	if p, _ := e.ledger.Position("KRW-BTC"); !p.Quantity.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("unexpected quantity %s", p.Quantity)
	}
}

func TestLanguageAndMenu(t *testing.T) {
	e := newTestEnv(t)

	e.press(cbkLanguage, "ko")
	assertContains(t, e.tg.last(t), "환영합니다")

	if lang, _ := e.chats.GetChatLanguage(context.Background(), chatID); lang != "ko" {
		t.Errorf("stored language %q, want ko", lang)
	}

	e.text("💼 포트폴리오")
	assertContains(t, e.tg.last(t), "포트폴리오", "보유 중인 자산이 없습니다")

	e.text("📜 History")
	assertContains(t, e.tg.last(t), "거래 내역이 없습니다")
}

func TestStoredLanguage(t *testing.T) {
	e := newTestEnv(t)

	if err := e.chats.SetChatLanguage(context.Background(), chatID, "ko"); err != nil {
		t.Fatal(err)
	}

	e.text("/start")
	assertContains(t, e.tg.last(t), "환영합니다")
}

func TestMarketsList(t *testing.T) {
	e := newTestEnv(t)

	e.text("/markets")
	assertContains(t, e.tg.last(t), "page 1 of 1")
}

func TestAllowedChats(t *testing.T) {
	e := newTestEnv(t, 1)

	e.text("/start")

	if n := e.tg.count(); n != 0 {
		t.Errorf("expected no replies to a foreign chat, got %d", n)
	}
}
