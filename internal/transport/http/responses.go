package httptransport

import (
	"time"

	authModels "nightout/internal/auth/models"
	outingModels "nightout/internal/outing/models"
	"nightout/internal/outing/tally"
)

type StatisticsResponse struct {
	Active           bool       `json:"active"`
	GroupTotal       float64    `json:"group_total"`
	VenuesVisited    int        `json:"venues_visited"`
	SquadSize        int        `json:"squad_size"`
	TotalDrinks      int        `json:"total_drinks"`
	SessionStartTime *time.Time `json:"session_start_time"`
}

func toStatisticsResponse(stats outingModels.Statistics) StatisticsResponse {
	resp := StatisticsResponse{
		Active:        stats.Active(),
		GroupTotal:    stats.GroupTotal,
		VenuesVisited: stats.VenuesVisited,
		SquadSize:     stats.SquadSize,
		TotalDrinks:   stats.TotalDrinks,
	}
	if stats.SessionStartTime != nil {
		t := stats.SessionStartTime.UTC()
		resp.SessionStartTime = &t
	}
	return resp
}

type TallyResponse struct {
	Participants []tally.Participant `json:"participants"`
	Statistics   StatisticsResponse  `json:"statistics"`
}

type MenuResponse struct {
	Prices tally.Menu `json:"prices"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// AuthStateResponse never carries tokens.
type AuthStateResponse struct {
	Loading       bool          `json:"loading"`
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

func toAuthStateResponse(state authModels.State) AuthStateResponse {
	resp := AuthStateResponse{
		Loading:       state.Loading,
		Authenticated: state.Authenticated(),
	}
	if state.User != nil {
		resp.User = &UserResponse{
			ID:       state.User.ID.String(),
			Email:    state.User.Email,
			Phone:    state.User.Phone,
			Provider: state.User.Provider(),
		}
	}
	if state.Session != nil && !state.Session.ExpiresAt.IsZero() {
		t := state.Session.ExpiresAt.UTC()
		resp.ExpiresAt = &t
	}
	return resp
}
