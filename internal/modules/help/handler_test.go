package help

import (
	"context"
	"strings"
	"testing"

	"github.com/garyellow/quizbot-go/internal/bot"
	"github.com/garyellow/quizbot-go/internal/intent"
	"github.com/garyellow/quizbot-go/internal/reply"
)

func TestHelp(t *testing.T) {
	h := NewHandler(false)
	resp, err := h.Help(context.Background(), &bot.Request{})
	if err != nil {
		t.Fatalf("Help() error = %v", err)
	}
	if len(resp.Outputs) != 1 || resp.Outputs[0].Kind != reply.KindCard {
		t.Fatalf("expected one card, got %+v", resp.Outputs)
	}
	if strings.Contains(resp.Outputs[0].Card.Description, "자연스럽게") {
		t.Error("NLU hint shown while NLU is disabled")
	}
	if len(resp.QuickReplies) == 0 {
		t.Error("expected quick replies")
	}
}

func TestHelpWithNLU(t *testing.T) {
	resp, _ := NewHandler(true).Help(context.Background(), &bot.Request{})
	if !strings.Contains(resp.Outputs[0].Card.Description, "자연스럽게") {
		t.Error("expected NLU hint")
	}
}

func TestRoutes(t *testing.T) {
	routes := NewHandler(false).Routes()
	if len(routes) != 1 || routes[0].Command != intent.CmdHelp {
		t.Errorf("Routes() = %+v", routes)
	}
}
