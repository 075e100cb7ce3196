// Package dispatch turns classified commands into state changes.
package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/financas-voz/internal/domain"
	"github.com/dvloznov/financas-voz/internal/intent"
	"github.com/dvloznov/financas-voz/internal/state"
)

// Messages shown when the model does not supply its own.
const (
	MsgTransactionAdded  = "Transação adicionada!"
	MsgFilterApplied     = "Extrato gerado com sucesso."
	MsgShowingAll        = "Mostrando tudo."
	MsgNothingToReverse  = "Nenhuma transação recente encontrada para estornar."
	MsgListCategories    = "Aqui estão suas categorias."
	MsgAppointmentAdded  = "Compromisso agendado."
	MsgCheckAgenda       = "Verifique sua agenda."
	MsgProcessingError   = "Erro ao processar."
	MsgClassifierFailure = "Desculpe, tive um problema ao processar. Tente novamente."
)

// Env carries what Apply needs from the outside world.
type Env struct {
	Now      time.Time
	Location *time.Location
	NewID    func() string
}

func (e Env) id() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.New().String()
}

func (e Env) now() time.Time {
	if e.Now.IsZero() {
		return time.Now()
	}
	return e.Now
}

func orDefault(msg, def string) string {
	if msg != "" {
		return msg
	}
	return def
}

// Apply computes the state after resp and the message to show the user.
// A response missing the payload its action needs changes nothing and
// produces no message. st is not modified.
func Apply(resp intent.Response, st state.State, env Env) (state.State, string) {
	switch resp.Action {
	case intent.ActionAdd:
		if resp.TransactionData == nil {
			return st, ""
		}
		return addTransaction(resp, st, env)

	case intent.ActionQuery:
		return st, resp.Message

	case intent.ActionFilter:
		if resp.FilterCriteria == nil {
			return st, ""
		}
		f := *resp.FilterCriteria
		f.Categories = append([]string(nil), resp.FilterCriteria.Categories...)
		st.Filter = &f
		st.View = domain.ViewHistory
		return st, orDefault(resp.Message, MsgFilterApplied)

	case intent.ActionClearFilter:
		st.Filter = nil
		if st.View == domain.ViewHistory {
			return st, orDefault(resp.Message, MsgShowingAll)
		}
		st.View = domain.ViewDashboard
		return st, ""

	case intent.ActionReverseLast:
		return reverseLast(resp, st)

	case intent.ActionAddCategory:
		if resp.CategoryData == nil {
			return st, ""
		}
		return addCategory(resp.CategoryData, st, env)

	case intent.ActionRemoveCategory:
		if resp.CategoryData == nil {
			return st, ""
		}
		return removeCategory(resp.CategoryData, st)

	case intent.ActionListCategories:
		st.View = domain.ViewCategories
		return st, orDefault(resp.Message, MsgListCategories)

	case intent.ActionAddAppointment:
		if resp.AppointmentData == nil {
			return st, ""
		}
		return addAppointment(resp, st, env)

	case intent.ActionQueryAgenda:
		st.View = domain.ViewAgenda
		return st, orDefault(resp.Message, MsgCheckAgenda)

	case intent.ActionError:
		return st, orDefault(resp.Message, MsgProcessingError)
	}

	return st, ""
}

func addTransaction(resp intent.Response, st state.State, env Env) (state.State, string) {
	data := resp.TransactionData

	date := strings.TrimSpace(data.Date)
	if date == "" {
		date = env.now().Format(time.RFC3339)
	}
	ts, err := domain.TimestampFromDate(date, env.Location)
	if err != nil {
		ts = env.now().UnixMilli()
	}

	typ := data.Type
	if !typ.Valid() {
		typ = domain.TransactionExpense
	}

	tx := domain.Transaction{
		ID:          env.id(),
		Date:        date,
		Timestamp:   ts,
		Description: data.Description,
		Category:    data.Category,
		Amount:      data.Amount.Abs(),
		Type:        typ,
	}

	txs := make([]domain.Transaction, 0, len(st.Transactions)+1)
	txs = append(txs, tx)
	st.Transactions = append(txs, st.Transactions...)
	st.Filter = nil
	st.View = domain.ViewHistory
	return st, orDefault(resp.Message, MsgTransactionAdded)
}

// LastActive returns the index of the active transaction with the greatest
// timestamp, or -1. Ties go to the first one in the list.
func LastActive(txs []domain.Transaction) int {
	best := -1
	for i, t := range txs {
		if !t.Active() {
			continue
		}
		if best == -1 || t.Timestamp > txs[best].Timestamp {
			best = i
		}
	}
	return best
}

func reverseLast(resp intent.Response, st state.State) (state.State, string) {
	i := LastActive(st.Transactions)
	if i == -1 {
		return st, MsgNothingToReverse
	}

	txs := append([]domain.Transaction(nil), st.Transactions...)
	txs[i].IsChargeback = !txs[i].IsChargeback
	st.Transactions = txs
	st.View = domain.ViewHistory
	return st, orDefault(resp.Message, fmt.Sprintf("Transação \"%s\" estornada.", txs[i].Description))
}

func addCategory(data *intent.CategoryData, st state.State, env Env) (state.State, string) {
	name := strings.TrimSpace(data.Name)
	if domain.FindCategory(st.Categories, name) != -1 {
		return st, fmt.Sprintf("A categoria \"%s\" já existe.", name)
	}

	typ := data.Type
	if typ == "" {
		typ = domain.CategoryBoth
	}

	cats := make([]domain.Category, 0, len(st.Categories)+1)
	cats = append(cats, st.Categories...)
	st.Categories = append(cats, domain.Category{ID: env.id(), Name: name, Type: typ})
	st.View = domain.ViewCategories
	return st, fmt.Sprintf("Categoria \"%s\" criada com sucesso.", name)
}

func removeCategory(data *intent.CategoryData, st state.State) (state.State, string) {
	i := domain.FindCategory(st.Categories, data.Name)
	if i == -1 {
		return st, fmt.Sprintf("Não encontrei a categoria \"%s\".", data.Name)
	}

	removed := st.Categories[i]
	cats := make([]domain.Category, 0, len(st.Categories)-1)
	cats = append(cats, st.Categories[:i]...)
	st.Categories = append(cats, st.Categories[i+1:]...)
	st.View = domain.ViewCategories
	return st, fmt.Sprintf("Categoria \"%s\" removida.", removed.Name)
}

func addAppointment(resp intent.Response, st state.State, env Env) (state.State, string) {
	data := resp.AppointmentData

	repeat := data.Repeat
	if repeat == "" {
		repeat = domain.RepeatNone
	}

	appt := domain.Appointment{
		ID:            env.id(),
		Title:         data.Title,
		Description:   data.Description,
		Date:          data.Date,
		Time:          data.Time,
		Repeat:        repeat,
		RepeatEndDate: data.RepeatEndDate,
	}

	appts := make([]domain.Appointment, 0, len(st.Appointments)+1)
	appts = append(appts, st.Appointments...)
	st.Appointments = append(appts, appt)
	st.View = domain.ViewAgenda
	return st, orDefault(resp.Message, MsgAppointmentAdded)
}
