package payroll

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory StoreAPI used by the service tests.
type memStore struct {
	mu          sync.Mutex
	seq         int
	periods     map[string]Period
	employees   []Employee
	inputs      map[string]map[string]Input
	results     map[string]map[string]Result
	previousNet map[string]decimal.Decimal
	payslips    map[string]*PayslipRef
	jobs        map[string]JobRun
	saveErr     error
	// onListInputs runs outside the lock, between the status check and the save of a run.
	onListInputs func(periodID string)
}

func newMemStore() *memStore {
	return &memStore{
		periods:     map[string]Period{},
		inputs:      map[string]map[string]Input{},
		results:     map[string]map[string]Result{},
		previousNet: map[string]decimal.Decimal{},
		payslips:    map[string]*PayslipRef{},
		jobs:        map[string]JobRun{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addPeriod(status string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("period")
	m.periods[id] = Period{
		ID:        id,
		Name:      id,
		StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC),
		Status:    status,
	}
	return id
}

func (m *memStore) CountPeriods(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.periods), nil
}

func (m *memStore) ListPeriods(_ context.Context, limit, offset int) ([]Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Period, 0, len(m.periods))
	for _, period := range m.periods {
		out = append(out, period)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CreatePeriod(_ context.Context, name string, startDate, endDate time.Time) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	period := Period{ID: m.nextID("period"), Name: name, StartDate: startDate, EndDate: endDate, Status: PeriodStatusDraft}
	m.periods[period.ID] = period
	return period, nil
}

func (m *memStore) GetPeriod(_ context.Context, periodID string) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	period, ok := m.periods[periodID]
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return period, nil
}

func (m *memStore) SaveRunResults(_ context.Context, periodID string, results []Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	period, ok := m.periods[periodID]
	if !ok {
		return ErrPeriodNotFound
	}
	if period.Status == PeriodStatusFinalized {
		return ErrPeriodFinalized
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	stored := make(map[string]Result, len(results))
	for _, result := range results {
		stored[result.EmployeeID] = result
	}
	m.results[periodID] = stored
	period.Status = PeriodStatusReviewed
	period.FinalizedAt = nil
	m.periods[periodID] = period
	return nil
}

func (m *memStore) FinalizeWithPayslips(_ context.Context, periodID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	period, ok := m.periods[periodID]
	if !ok {
		return ErrPeriodNotFound
	}
	if period.Status != PeriodStatusReviewed {
		return ErrFinalizeInvalidState
	}
	if len(m.results[periodID]) == 0 {
		return ErrFinalizeNoResults
	}
	now := time.Now()
	period.Status = PeriodStatusFinalized
	period.FinalizedAt = &now
	m.periods[periodID] = period
	m.issuePayslips(periodID)
	return nil
}

func (m *memStore) ResetPeriod(_ context.Context, periodID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	period, ok := m.periods[periodID]
	if !ok {
		return ErrPeriodNotFound
	}
	if period.Status != PeriodStatusReviewed && period.Status != PeriodStatusFinalized {
		return ErrReopenInvalidState
	}
	for id, slip := range m.payslips {
		if slip.PeriodID == periodID {
			delete(m.payslips, id)
		}
	}
	delete(m.results, periodID)
	period.Status = PeriodStatusDraft
	period.FinalizedAt = nil
	m.periods[periodID] = period
	return nil
}

// issuePayslips adds a payslip row per result; callers hold m.mu.
func (m *memStore) issuePayslips(periodID string) {
	for employeeID := range m.results[periodID] {
		exists := false
		for _, slip := range m.payslips {
			if slip.PeriodID == periodID && slip.EmployeeID == employeeID {
				exists = true
			}
		}
		if !exists {
			id := m.nextID("payslip")
			m.payslips[id] = &PayslipRef{ID: id, PeriodID: periodID, EmployeeID: employeeID}
		}
	}
}

func (m *memStore) EmployeeExists(_ context.Context, employeeID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, employee := range m.employees {
		if employee.ID == employeeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListActiveEmployees(context.Context) ([]Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Employee(nil), m.employees...), nil
}

func (m *memStore) UpsertInput(_ context.Context, periodID string, input Input) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inputs[periodID] == nil {
		m.inputs[periodID] = map[string]Input{}
	}
	m.inputs[periodID][input.EmployeeID] = input
	return nil
}

func (m *memStore) ListInputs(_ context.Context, periodID string) ([]Input, error) {
	if m.onListInputs != nil {
		m.onListInputs(periodID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Input
	for _, input := range m.inputs[periodID] {
		out = append(out, input)
	}
	return out, nil
}

func (m *memStore) PreviousNet(_ context.Context, employeeID, _ string) (decimal.Decimal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	net, ok := m.previousNet[employeeID]
	return net, ok, nil
}

func (m *memStore) ListResults(_ context.Context, periodID string) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Result
	for _, result := range m.results[periodID] {
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *memStore) ListPayslipKeys(_ context.Context, periodID string) ([]PayslipKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []PayslipKey
	for _, slip := range m.payslips {
		if slip.PeriodID == periodID {
			keys = append(keys, PayslipKey{ID: slip.ID, EmployeeID: slip.EmployeeID})
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	return keys, nil
}

func (m *memStore) ListPayslipFiles(_ context.Context, periodID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var files []string
	for _, slip := range m.payslips {
		if slip.PeriodID == periodID && slip.FileURL != "" {
			files = append(files, slip.FileURL)
		}
	}
	return files, nil
}

func (m *memStore) UpdatePayslipFileURL(_ context.Context, payslipID, fileURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slip, ok := m.payslips[payslipID]; ok {
		slip.FileURL = fileURL
	}
	return nil
}

func (m *memStore) CountPayslips(_ context.Context, employeeID string) (int, error) {
	slips, err := m.ListPayslips(context.Background(), employeeID, 1000, 0)
	return len(slips), err
}

func (m *memStore) ListPayslips(_ context.Context, employeeID string, limit, offset int) ([]Payslip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Payslip
	for _, slip := range m.payslips {
		if slip.EmployeeID != employeeID {
			continue
		}
		result := m.results[slip.PeriodID][slip.EmployeeID]
		out = append(out, Payslip{
			ID:         slip.ID,
			PeriodID:   slip.PeriodID,
			EmployeeID: slip.EmployeeID,
			Gross:      result.Calculation.GrossPay,
			Deductions: result.Calculation.Deductions.TotalDeductions,
			Net:        result.Calculation.NetPay,
			FileURL:    slip.FileURL,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetPayslip(_ context.Context, payslipID string) (PayslipRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slip, ok := m.payslips[payslipID]
	if !ok {
		return PayslipRef{}, ErrPayslipNotFound
	}
	return *slip, nil
}

func (m *memStore) PayslipPDFData(_ context.Context, periodID, employeeID string) (PayslipPDFData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result, ok := m.results[periodID][employeeID]
	if !ok {
		return PayslipPDFData{}, ErrPayslipNotFound
	}
	period := m.periods[periodID]
	return PayslipPDFData{
		FullName:  result.EmployeeName,
		StartDate: period.StartDate,
		EndDate:   period.EndDate,
		Result:    result.Calculation,
	}, nil
}

func (m *memStore) CreateJobRun(_ context.Context, jobType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID("job")
	m.jobs[id] = JobRun{ID: id, JobType: jobType, Status: "running", StartedAt: time.Now()}
	return id, nil
}

func (m *memStore) UpdateJobRun(_ context.Context, runID, status string, details any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := m.jobs[runID]
	run.Status = status
	run.Details, _ = json.Marshal(details)
	m.jobs[runID] = run
	return nil
}

func (m *memStore) GetJobRun(_ context.Context, runID string) (JobRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.jobs[runID]
	if !ok {
		return JobRun{}, ErrJobNotFound
	}
	return run, nil
}

var _ StoreAPI = (*memStore)(nil)
