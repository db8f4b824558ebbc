package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"alphaphones/internal/api"
	applog "alphaphones/internal/log"
)

// ChatHandler answers the showcase chat widget. It picks a reply by simple
// keyword intent over the live catalog; no external AI service is involved.
type ChatHandler struct {
	Client *api.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *ChatHandler) Chat(c *fiber.Ctx) error {
	var body struct {
		Messages []chatMessage `json:"messages"`
	}
	if err := c.BodyParser(&body); err != nil || len(body.Messages) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
	last := body.Messages[len(body.Messages)-1]

	phones, err := h.Client.GetPhones(c.Context())
	if err != nil {
		applog.Error(c, "chat.catalog", err, nil)
		return c.JSON(fiber.Map{
			"reply": "Sorry, I cannot reach our catalog right now. Please contact us on WhatsApp at " + whatsAppNumber + ".",
		})
	}

	return c.JSON(fiber.Map{"reply": replyFor(strings.ToLower(last.Content), phones)})
}

func replyFor(question string, phones []api.Phone) string {
	available := phones[:0:0]
	for _, p := range phones {
		if p.Available() {
			available = append(available, p)
		}
	}
	if len(available) == 0 {
		return "Our catalog is being restocked right now. Contact us on WhatsApp at " + whatsAppNumber + " for the latest arrivals."
	}

	switch {
	case containsAny(question, "photo", "camera", "picture"):
		best := pickBy(available, func(p api.Phone) string { return p.MainCamera })
		return fmt.Sprintf("For photography I would look at the %s (%s main camera). %s", best.Name, best.MainCamera, closing())
	case containsAny(question, "battery", "charge"):
		best := pickBy(available, func(p api.Phone) string { return p.Battery })
		return fmt.Sprintf("The %s has the strongest battery in our lineup at %s. %s", best.Name, best.Battery, closing())
	case containsAny(question, "game", "gaming", "performance", "fast"):
		best := pickBy(available, func(p api.Phone) string { return p.RAM })
		return fmt.Sprintf("For gaming, the %s with %s RAM and %s is our top pick. %s", best.Name, best.RAM, best.Processor, closing())
	case containsAny(question, "new", "latest", "arrival"):
		latest := available[0]
		return fmt.Sprintf("Our newest arrival is the %s by %s. %s", latest.Name, latest.Brand, closing())
	case containsAny(question, "price", "cost", "how much", "discount"):
		return "Prices change with current promotions, so we share them directly. " + closing()
	case containsAny(question, "warranty", "return", "refund"):
		return "Brand new phones ship with a 12-month warranty and pre-owned ones with 6 months. " + closing()
	default:
		names := make([]string, 0, 3)
		for i, p := range available {
			if i == 3 {
				break
			}
			names = append(names, p.Name)
		}
		return fmt.Sprintf("We currently stock %d phones, including %s. Tell me what matters most to you (camera, battery, gaming, budget) and I can narrow it down. %s",
			len(available), strings.Join(names, ", "), closing())
	}
}

func closing() string {
	return "Contact us on WhatsApp at " + whatsAppNumber + " for pricing and availability!"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// pickBy prefers the phone with the lexically greatest value of the given
// spec field, which works well enough for "200MP" vs "48MP" style strings
// of equal unit, and falls back to the first phone otherwise.
func pickBy(phones []api.Phone, key func(api.Phone) string) api.Phone {
	sorted := make([]api.Phone, len(phones))
	copy(sorted, phones)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := key(sorted[i]), key(sorted[j])
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a > b
	})
	return sorted[0]
}
