package voice

import (
	"regexp"
	"strings"

	"github.com/dvloznov/financas-voz/internal/domain"
)

var (
	financeWord = regexp.MustCompile(`(?i)finanças|financas`)
	agendaWord  = regexp.MustCompile(`(?i)agenda`)
)

// Effect is what an utterance does to an awake session.
type Effect int

const (
	EffectNone Effect = iota
	EffectSleep
	EffectSwitchMode
	EffectConfirmMode
	EffectCommand
)

func (e Effect) String() string {
	switch e {
	case EffectSleep:
		return "sleep"
	case EffectSwitchMode:
		return "switch_mode"
	case EffectConfirmMode:
		return "confirm_mode"
	case EffectCommand:
		return "command"
	default:
		return "none"
	}
}

// Decision is the outcome of evaluating an utterance against the rules.
type Decision struct {
	Rule   string
	Effect Effect
	Mode   domain.Mode // for mode switches and confirmations
	Text   string      // command to forward
}

// Rule matches an utterance and decides what it means.
type Rule struct {
	Name  string
	Match func(utterance string) (Decision, bool)
}

// ActiveRules are evaluated in order against every utterance heard while
// awake; the first match wins.
var ActiveRules = []Rule{
	{Name: "sleep", Match: matchSleep},
	{Name: "mode-switch", Match: matchModeSwitch},
	{Name: "wake-repeat", Match: matchWakeRepeat},
	{Name: "command", Match: matchCommand},
}

// Evaluate returns the decision of the first matching rule.
func Evaluate(rules []Rule, utterance string) Decision {
	for _, r := range rules {
		if d, ok := r.Match(utterance); ok {
			d.Rule = r.Name
			return d
		}
	}
	return Decision{Effect: EffectNone}
}

// normalize lower-cases and drops the punctuation recognizers like to append.
func normalize(s string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(s)), ".!?,;")
}

// collapse squeezes the whitespace left behind by removing words.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func matchSleep(utterance string) (Decision, bool) {
	n := normalize(utterance)
	if strings.Contains(n, "fechar") || n == "sair" || strings.Contains(n, "dormir") {
		return Decision{Effect: EffectSleep}, true
	}
	return Decision{}, false
}

var modeSwitchPhrases = map[string]domain.Mode{
	"ir para agenda":   domain.ModeAgenda,
	"abrir agenda":     domain.ModeAgenda,
	"ir para finanças": domain.ModeFinance,
	"abrir finanças":   domain.ModeFinance,
	"ir para financas": domain.ModeFinance,
	"abrir financas":   domain.ModeFinance,
}

func matchModeSwitch(utterance string) (Decision, bool) {
	if mode, ok := modeSwitchPhrases[collapse(normalize(utterance))]; ok {
		return Decision{Effect: EffectSwitchMode, Mode: mode}, true
	}
	return Decision{}, false
}

func matchWakeRepeat(utterance string) (Decision, bool) {
	var mode domain.Mode
	var rest string
	switch {
	case financeWord.MatchString(utterance):
		mode, rest = domain.ModeFinance, collapse(financeWord.ReplaceAllString(utterance, ""))
	case agendaWord.MatchString(utterance):
		mode, rest = domain.ModeAgenda, collapse(agendaWord.ReplaceAllString(utterance, ""))
	default:
		return Decision{}, false
	}
	if rest == "" {
		return Decision{Effect: EffectConfirmMode, Mode: mode}, true
	}
	return Decision{Effect: EffectCommand, Text: rest}, true
}

func matchCommand(utterance string) (Decision, bool) {
	text := collapse(utterance)
	if text == "" {
		return Decision{}, false
	}
	return Decision{Effect: EffectCommand, Text: text}, true
}

// DetectWake looks for a wake word in an utterance heard while asleep.
// Agenda wins when both are present. rest is the utterance with every wake
// word removed.
func DetectWake(utterance string) (mode domain.Mode, rest string, ok bool) {
	isFinance := financeWord.MatchString(utterance)
	isAgenda := agendaWord.MatchString(utterance)
	if !isFinance && !isAgenda {
		return "", "", false
	}

	mode = domain.ModeFinance
	if isAgenda {
		mode = domain.ModeAgenda
	}
	rest = agendaWord.ReplaceAllString(financeWord.ReplaceAllString(utterance, ""), "")
	return mode, collapse(rest), true
}
