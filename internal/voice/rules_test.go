package voice

import (
	"testing"

	"github.com/dvloznov/financas-voz/internal/domain"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		utterance string
		rule      string
		effect    Effect
		mode      domain.Mode
		text      string
	}{
		{"fechar", "sleep", EffectSleep, "", ""},
		{"Pode fechar!", "sleep", EffectSleep, "", ""},
		{"  sair  ", "sleep", EffectSleep, "", ""},
		{"hora de dormir", "sleep", EffectSleep, "", ""},
		{"ir para   agenda.", "mode-switch", EffectSwitchMode, domain.ModeAgenda, ""},
		{"abrir financas", "mode-switch", EffectSwitchMode, domain.ModeFinance, ""},
		{"ir para agenda amanhã", "wake-repeat", EffectCommand, "", "ir para amanhã"},
		{"Agenda", "wake-repeat", EffectConfirmMode, domain.ModeAgenda, ""},
		{"finanças e agenda", "wake-repeat", EffectCommand, "", "e agenda"},
		{"gastei  30 no mercado", "command", EffectCommand, "", "gastei 30 no mercado"},
		{"   ", "", EffectNone, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			d := Evaluate(ActiveRules, tt.utterance)
			if d.Rule != tt.rule {
				t.Errorf("Rule = %q, want %q", d.Rule, tt.rule)
			}
			if d.Effect != tt.effect {
				t.Errorf("Effect = %s, want %s", d.Effect, tt.effect)
			}
			if d.Mode != tt.mode {
				t.Errorf("Mode = %q, want %q", d.Mode, tt.mode)
			}
			if d.Text != tt.text {
				t.Errorf("Text = %q, want %q", d.Text, tt.text)
			}
		})
	}
}

func TestDetectWake(t *testing.T) {
	tests := []struct {
		utterance string
		ok        bool
		mode      domain.Mode
		rest      string
	}{
		{"Agenda o que tenho hoje", true, domain.ModeAgenda, "o que tenho hoje"},
		{"finanças", true, domain.ModeFinance, ""},
		{"Financas, gastei 10", true, domain.ModeFinance, ", gastei 10"},
		{"agenda e finanças", true, domain.ModeAgenda, "e"},
		{"gastei 10 reais", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			mode, rest, ok := DetectWake(tt.utterance)
			if ok != tt.ok || mode != tt.mode || rest != tt.rest {
				t.Errorf("DetectWake(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.utterance, mode, rest, ok, tt.mode, tt.rest, tt.ok)
			}
		})
	}
}

func TestEffectString(t *testing.T) {
	if EffectCommand.String() != "command" || Effect(99).String() != "none" {
		t.Errorf("unexpected Effect strings")
	}
}
