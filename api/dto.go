/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract: periods and
  tiers travel as their rendered labels ("2026-W07", "P3") and quantities
  as plain integers, so clients never depend on internal representations.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Runs:
    RunDTO, CreateRunRequest, RunResponse

  Outputs:
    ResultDTO, SummaryDTO, TierAllocationDTO

  Inline input:
    SupplyInputDTO, OrderInputDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data
  carriers; the alloc constructors reject bad magnitudes when inline
  input is converted to domain types.

SEE ALSO:
  - handlers.go: Uses these types
  - report/csv.go: the CSV renditions of the same outputs
*/
package api

import (
	"time"

	"github.com/warp/allocation-engine/alloc"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RunDTO represents a saved run in API responses.
type RunDTO struct {
	ID             string `json:"id"`
	CreatedAt      string `json:"created_at"`
	SupplySource   string `json:"supply_source,omitempty"`
	DemandSource   string `json:"demand_source,omitempty"`
	FirstPeriod    string `json:"first_period"`
	LastPeriod     string `json:"last_period"`
	OrderCount     int    `json:"order_count"`
	TotalDemand    int64  `json:"total_demand"`
	TotalAllocated int64  `json:"total_allocated"`
}

// CreateRunRequest is the request to execute a run. An empty body (or
// empty supply and orders) runs the newest snapshot in the data
// directory; a populated body runs the inline dataset instead.
type CreateRunRequest struct {
	Supply []SupplyInputDTO `json:"supply,omitempty"`
	Orders []OrderInputDTO  `json:"orders,omitempty"`
}

// SupplyInputDTO is one week of inline supply.
type SupplyInputDTO struct {
	Period        string `json:"period"`
	SubcomponentA int64  `json:"subcomponent_a_qty"`
	SubcomponentB int64  `json:"subcomponent_b_qty"`
}

// OrderInputDTO is one inline demand order. Unlike snapshot demand rows,
// inline orders carry their own tier and segment; there is no roster to
// merge against.
type OrderInputDTO struct {
	OrderID         string `json:"order_id"`
	CustomerID      string `json:"customer_id"`
	Segment         string `json:"market_segment,omitempty"`
	Tier            string `json:"priority"`
	PeriodRequested string `json:"period_requested"`
	QtyOrdered      int64  `json:"qty_ordered"`
}

// RunResponse is returned after executing a run: the saved record plus
// the per-period summaries, which is enough for a client to render the
// headline outcome without a second round trip.
type RunResponse struct {
	Run        RunDTO       `json:"run"`
	Summaries  []SummaryDTO `json:"summaries"`
	OpenOrders int          `json:"open_orders"` // orders still unfilled after the final period
}

// ResultDTO is one per-order, per-period allocation row.
type ResultDTO struct {
	Period                 string `json:"period"`
	OrderID                string `json:"order_id"`
	CustomerID             string `json:"customer_id"`
	Segment                string `json:"market_segment,omitempty"`
	Tier                   string `json:"priority"`
	QtyOrdered             int64  `json:"qty_ordered"`
	QtyAllocated           int64  `json:"qty_allocated_total"`
	QtyAllocatedThisPeriod int64  `json:"qty_allocated_period"`
	Status                 string `json:"status"`
}

// SummaryDTO is one period's rollup.
type SummaryDTO struct {
	Period                   string `json:"period"`
	GlobalLimit              int64  `json:"global_build_limit"`
	TotalDemand              int64  `json:"total_demand"`
	TotalAllocated           int64  `json:"total_allocated"`
	OpenBacklogQty           int64  `json:"open_backlog_qty"`
	ConstrainingSubcomponent string `json:"constraining_subcomponent"`
}

// TierAllocationDTO is one tier's share of one period's limit.
type TierAllocationDTO struct {
	Period    string `json:"period"`
	Tier      string `json:"tier"`
	Demand    int64  `json:"demand"`
	Allocated int64  `json:"allocated"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to generate and run.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRunDTO(rec alloc.RunRecord) RunDTO {
	return RunDTO{
		ID:             string(rec.ID),
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
		SupplySource:   rec.SupplySource,
		DemandSource:   rec.DemandSource,
		FirstPeriod:    rec.FirstPeriod.String(),
		LastPeriod:     rec.LastPeriod.String(),
		OrderCount:     rec.OrderCount,
		TotalDemand:    rec.TotalDemand,
		TotalAllocated: rec.TotalAllocated,
	}
}

func toRunDTOs(recs []alloc.RunRecord) []RunDTO {
	dtos := make([]RunDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toRunDTO(rec)
	}
	return dtos
}

func toResultDTO(r alloc.AllocationResult) ResultDTO {
	return ResultDTO{
		Period:                 r.Period.String(),
		OrderID:                string(r.OrderID),
		CustomerID:             string(r.CustomerID),
		Segment:                r.Segment,
		Tier:                   r.Tier.String(),
		QtyOrdered:             r.QtyOrdered,
		QtyAllocated:           r.QtyAllocated,
		QtyAllocatedThisPeriod: r.QtyAllocatedThisPeriod,
		Status:                 string(r.Status),
	}
}

func toResultDTOs(results []alloc.AllocationResult) []ResultDTO {
	dtos := make([]ResultDTO, len(results))
	for i, r := range results {
		dtos[i] = toResultDTO(r)
	}
	return dtos
}

func toSummaryDTO(s alloc.PeriodSummary) SummaryDTO {
	return SummaryDTO{
		Period:                   s.Period.String(),
		GlobalLimit:              s.GlobalLimit,
		TotalDemand:              s.TotalDemand,
		TotalAllocated:           s.TotalAllocated,
		OpenBacklogQty:           s.TotalDemand - s.TotalAllocated,
		ConstrainingSubcomponent: string(s.ConstrainingSubcomponent),
	}
}

func toSummaryDTOs(summaries []alloc.PeriodSummary) []SummaryDTO {
	dtos := make([]SummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = toSummaryDTO(s)
	}
	return dtos
}

func toTierAllocationDTOs(tiers []alloc.TierAllocation) []TierAllocationDTO {
	dtos := make([]TierAllocationDTO, len(tiers))
	for i, t := range tiers {
		dtos[i] = TierAllocationDTO{
			Period:    t.Period.String(),
			Tier:      t.Tier.String(),
			Demand:    t.Demand,
			Allocated: t.Allocated,
		}
	}
	return dtos
}
