package intent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/financas-voz/internal/domain"
)

var weekdaysPT = [...]string{
	time.Sunday:    "domingo",
	time.Monday:    "segunda-feira",
	time.Tuesday:   "terça-feira",
	time.Wednesday: "quarta-feira",
	time.Thursday:  "quinta-feira",
	time.Friday:    "sexta-feira",
	time.Saturday:  "sábado",
}

// WeekdayPT returns the Brazilian Portuguese name of d.
func WeekdayPT(d time.Weekday) string {
	return weekdaysPT[d]
}

type transactionContext struct {
	Date        string                 `json:"date"`
	Category    string                 `json:"category"`
	Amount      string                 `json:"amount"`
	Type        domain.TransactionType `json:"type"`
	Description string                 `json:"description"`
}

type appointmentContext struct {
	Title  string        `json:"title"`
	Date   string        `json:"date"`
	Time   string        `json:"time"`
	Repeat domain.Repeat `json:"repeat"`
}

// BuildSystemInstruction renders the pt-BR instruction sent with every command.
// It carries today's date, the category list, and the recent context.
func BuildSystemInstruction(req Request) (string, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	txs := make([]transactionContext, 0, len(req.RecentTransactions))
	for _, t := range req.RecentTransactions {
		txs = append(txs, transactionContext{
			Date:        t.Date,
			Category:    t.Category,
			Amount:      t.Amount.String(),
			Type:        t.Type,
			Description: t.Description,
		})
	}
	txJSON, err := json.Marshal(txs)
	if err != nil {
		return "", fmt.Errorf("BuildSystemInstruction: marshal transactions: %w", err)
	}

	appts := make([]appointmentContext, 0, len(req.UpcomingAppointments))
	for _, a := range req.UpcomingAppointments {
		appts = append(appts, appointmentContext{Title: a.Title, Date: a.Date, Time: a.Time, Repeat: a.Repeat})
	}
	apptJSON, err := json.Marshal(appts)
	if err != nil {
		return "", fmt.Errorf("BuildSystemInstruction: marshal appointments: %w", err)
	}

	var b strings.Builder
	b.WriteString("Você é um assistente pessoal híbrido (Financeiro + Agenda) chamado \"Finanças Voz\".\n")
	fmt.Fprintf(&b, "Hoje é: %s (Dia da semana: %s).\n", now.Format(domain.DateLayout), WeekdayPT(now.Weekday()))
	fmt.Fprintf(&b, "Hora atual: %s.\n\n", now.Format(domain.TimeLayout))
	fmt.Fprintf(&b, "CATEGORIAS FINANCEIRAS: [%s]\n\n", strings.Join(req.Categories, ", "))
	b.WriteString(intentsPrompt)
	fmt.Fprintf(&b, "\nCONTEXTO FINANCEIRO RECENTE: %s\n", txJSON)
	fmt.Fprintf(&b, "CONTEXTO AGENDA FUTURA: %s\n", apptJSON)

	return b.String(), nil
}

const intentsPrompt = `O usuário vai falar um comando. Ignore a palavra chave "Finanças" ou "Agenda" no início se ela for apenas um gatilho.

INTENÇÕES FINANCEIRAS:
1. REGISTRAR GASTO/GANHO (action: 'add')
   - "gastei 50 na padaria", "recebi aluguel".
2. CONSULTAR FINANÇAS (action: 'query')
   - "saldo", "quanto gastei".
3. EXTRATO (action: 'filter')
   - "extrato de janeiro", "gastos com uber".
4. CATEGORIAS (action: 'add_category', 'remove_category', 'list_categories').
5. ESTORNO/CANCELAMENTO (action: 'reverse_last_transaction')
   - "estornar o último lançamento", "cancelar a última compra".
   - Use quando o usuário quer marcar a transação mais recente como estornada.

INTENÇÕES DE AGENDA (Palavras chave: Agendar, Marcar, Reunião, Compromisso, Lembrete, Agenda):
1. CRIAR COMPROMISSO (action: 'add_appointment')
   - "Agendar dentista amanhã às 14h" -> date: [amanhã], time: "14:00".
   - "Reunião toda segunda às 9h" -> repeat: "weekly", date: [próxima segunda].
   - "Pagar boleto todo dia 5" -> repeat: "monthly", date: [próximo dia 5].
   - Sem hora informada, use "09:00".
2. CONSULTAR AGENDA (action: 'query_agenda')
   - "O que tenho para hoje?", "Minha agenda da semana".
   - Responda no campo 'message' usando o contexto de agenda.

OUTROS:
- LIMPAR (action: 'clear_filter') -> "sair", "voltar".
`
