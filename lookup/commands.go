package lookup

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/manedatmane/manestream-bot/bot"
)

// Commands returns the external lookup command set. Commands whose API key is
// missing reply that the feature is not configured instead of failing.
func Commands(client *Client) *bot.Set {
	var b [8]byte
	var rng *mrand.Rand
	if _, err := rand.Read(b[:]); err != nil {
		rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
	} else {
		rng = mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
	}
	h := &handlers{client: client, rng: rng}
	return &bot.Set{
		Name: "lookup",
		Commands: []bot.Command{
			{
				Name:        "gif",
				Aliases:     []string{"giphy"},
				Description: "Search for a GIF on GIPHY.",
				Usage:       "!gif <search term>",
				Cooldown:    5 * time.Second,
				Handler:     h.gif,
			},
			{
				Name:        "tenor",
				Description: "Search for a GIF on Tenor.",
				Usage:       "!tenor <search term>",
				Cooldown:    5 * time.Second,
				Handler:     h.tenor,
			},
			{
				Name:        "imdb",
				Aliases:     []string{"movie", "film"},
				Description: "Get movie or TV info from OMDb.",
				Usage:       "!imdb <title> [-tv/-m]",
				Cooldown:    5 * time.Second,
				Handler:     h.imdb,
			},
			{
				Name:        "weather",
				Aliases:     []string{"wx"},
				Description: "Get the current weather for a city.",
				Usage:       "!weather <city>",
				Cooldown:    5 * time.Second,
				Handler:     h.weather,
			},
			{
				Name:        "pepe",
				Description: "Random Pepe GIF.",
				Usage:       "!pepe",
				Cooldown:    5 * time.Second,
				Handler:     h.meme("pepe the frog", "No Pepes found!"),
			},
			{
				Name:        "wojak",
				Description: "Random Wojak GIF.",
				Usage:       "!wojak",
				Cooldown:    5 * time.Second,
				Handler:     h.meme("wojak", "No Wojaks found!"),
			},
		},
	}
}

type handlers struct {
	client *Client

	mu  sync.Mutex
	rng *mrand.Rand
}

func (h *handlers) intn(n int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Intn(n)
}

// meme builds a handler that replies with a random Tenor result for a fixed
// query.
func (h *handlers) meme(query, noneMsg string) bot.HandlerFunc {
	return func(ctx context.Context, inv *bot.Invocation) error {
		if h.client.TenorKey == "" {
			inv.Reply("Tenor lookups are not configured")
			return nil
		}
		urls, err := h.client.TenorGIFs(ctx, query, 20)
		if err != nil {
			return fmt.Errorf("tenor search: %w", err)
		}
		if len(urls) == 0 {
			inv.Reply(noneMsg)
			return nil
		}
		inv.Reply(urls[h.intn(len(urls))])
		return nil
	}
}

func (h *handlers) gif(ctx context.Context, inv *bot.Invocation) error {
	query := strings.TrimSpace(inv.Args)
	if query == "" {
		return bot.Usagef("!gif <search term>")
	}
	if h.client.GiphyKey == "" {
		inv.Reply("GIPHY lookups are not configured")
		return nil
	}
	url, err := h.client.SearchGiphy(ctx, query)
	if err != nil {
		return fmt.Errorf("giphy search: %w", err)
	}
	if url == "" {
		inv.Reply(fmt.Sprintf("No GIFs found for: %s", query))
		return nil
	}
	inv.Reply(url)
	return nil
}

func (h *handlers) tenor(ctx context.Context, inv *bot.Invocation) error {
	query := strings.TrimSpace(inv.Args)
	if query == "" {
		return bot.Usagef("!tenor <search term>")
	}
	if h.client.TenorKey == "" {
		inv.Reply("Tenor lookups are not configured")
		return nil
	}
	url, err := h.client.SearchTenor(ctx, query)
	if err != nil {
		return fmt.Errorf("tenor search: %w", err)
	}
	if url == "" {
		inv.Reply(fmt.Sprintf("No GIFs found for: %s", query))
		return nil
	}
	inv.Reply(url)
	return nil
}

func (h *handlers) imdb(ctx context.Context, inv *bot.Invocation) error {
	title := strings.TrimSpace(inv.Args)
	if title == "" {
		return bot.Usagef("!imdb <title> [-tv/-m]")
	}
	if h.client.OMDBKey == "" {
		inv.Reply("OMDb lookups are not configured")
		return nil
	}

	mediaType := ""
	switch {
	case strings.HasSuffix(title, " -tv"):
		title, mediaType = strings.TrimSpace(title[:len(title)-4]), "series"
	case strings.HasSuffix(title, " -m"):
		title, mediaType = strings.TrimSpace(title[:len(title)-3]), "movie"
	}

	record, err := h.client.LookupTitle(ctx, title, mediaType)
	if err != nil {
		return fmt.Errorf("omdb lookup: %w", err)
	}
	if record == nil {
		inv.Reply(fmt.Sprintf("Couldn't find: %s", title))
		return nil
	}
	plot := bot.Truncate(record.Plot, 150)
	inv.Reply(fmt.Sprintf("%s (%s) - %s | %s | %s",
		record.Title, record.Year, record.Rating, record.Genre, plot))
	return nil
}

func (h *handlers) weather(ctx context.Context, inv *bot.Invocation) error {
	city := strings.TrimSpace(inv.Args)
	if city == "" {
		return bot.Usagef("!weather <city>")
	}
	wx, err := h.client.CurrentWeather(ctx, city)
	if err != nil {
		return fmt.Errorf("weather lookup: %w", err)
	}
	if wx == nil {
		inv.Reply(fmt.Sprintf("Couldn't find city: %s", city))
		return nil
	}
	place := wx.City
	if wx.Country != "" {
		place += ", " + wx.Country
	}
	inv.Reply(fmt.Sprintf("%s: %.0fF, wind %.0f mph", place, wx.TempF, wx.WindMPH))
	return nil
}
