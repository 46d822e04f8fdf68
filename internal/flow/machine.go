// ABOUTME: Guided-conversation state machine for the support dialogue
// ABOUTME: Pure transition function from (session, input) to (session, replies)

package flow

import "strings"

// Step identifies the current position in the guided conversation.
type Step string

const (
	StepStart              Step = "start"
	StepAskName            Step = "ask_name"
	StepAskService         Step = "ask_service"
	StepSupportDescription Step = "support_description"
)

// Session holds the conversational state for a single user identifier.
type Session struct {
	Step Step
	Name string
}

// Report is a captured support request, produced when a user finishes
// describing their problem.
type Report struct {
	Name        string
	Description string
}

// Result is the outcome of a single transition: the next session state, the
// replies to deliver (always at least one), and an optional captured report.
type Result struct {
	Session Session
	Replies []string
	Report  *Report
}

// Reply texts delivered by the bot, in the order the dialogue presents them.
const (
	replyAskName = "Olá! Qual é o seu nome?"
	replySupport = "Você escolheu *Suporte técnico*. Por favor, descreva o problema."
	replyInfo    = "Você escolheu *Informações sobre serviços*. Aqui estão nossas opções:\n- Serviço A\n- Serviço B\n- Serviço C"
	replyAgent   = "Você escolheu *Falar com um atendente*. Um atendente entrará em contato em breve."
	replyInvalid = "Opção inválida. Por favor, escolha 1, 2 ou 3."
	replyThanks  = "Obrigado por descrever o problema. Nossa equipe entrará em contato em breve."
	replyRecover = "Algo deu errado. Vamos começar de novo."
)

// greeting builds the service menu reply, addressed by name.
func greeting(name string) string {
	return "Prazer, " + name + "! Como posso ajudar você hoje? Escolha uma opção:\n" +
		"1️⃣ - Suporte técnico\n" +
		"2️⃣ - Informações sobre serviços\n" +
		"3️⃣ - Falar com um atendente"
}

// Transition advances a session by one inbound message. It is a pure
// function: all persistence and messaging side effects belong to the caller.
//
// Matching is performed on a case-folded, trimmed copy of the input; captured
// values (the user's name, the problem description) keep their original
// trimmed casing. Every (step, input) pair yields a defined next step with a
// non-empty reply list, so the dialogue can never deadlock: unmatched input
// either re-prompts (ask_service) or resets to start.
func Transition(s Session, input string) Result {
	raw := strings.TrimSpace(input)
	normalized := strings.ToLower(raw)

	switch s.Step {
	case StepStart:
		s.Step = StepAskName
		return Result{Session: s, Replies: []string{replyAskName}}

	case StepAskName:
		s.Name = raw
		s.Step = StepAskService
		return Result{Session: s, Replies: []string{greeting(s.Name)}}

	case StepAskService:
		switch {
		case normalized == "1" || strings.Contains(normalized, "suporte"):
			s.Step = StepSupportDescription
			return Result{Session: s, Replies: []string{replySupport}}
		case normalized == "2" || strings.Contains(normalized, "informações"):
			s.Step = StepStart
			return Result{Session: s, Replies: []string{replyInfo}}
		case normalized == "3" || strings.Contains(normalized, "atendente"):
			s.Step = StepStart
			return Result{Session: s, Replies: []string{replyAgent}}
		default:
			// Step unchanged: re-prompt until a valid option arrives.
			return Result{Session: s, Replies: []string{replyInvalid}}
		}

	case StepSupportDescription:
		report := &Report{Name: s.Name, Description: raw}
		s.Step = StepStart
		return Result{Session: s, Replies: []string{replyThanks}, Report: report}

	default:
		s.Step = StepStart
		return Result{Session: s, Replies: []string{replyRecover}}
	}
}
