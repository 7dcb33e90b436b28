package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/icnetwork/decentralization/internal/changeengine"
	"github.com/icnetwork/decentralization/internal/domain"
	"github.com/icnetwork/decentralization/internal/nakamoto"
	"github.com/icnetwork/decentralization/internal/rules"
)

// scoreRequest backs POST /api/subnets/score; the response is the Score.
type scoreRequest struct {
	Subnet domain.Subnet `json:"subnet"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	score := nakamoto.NewScore(req.Subnet.FeatureSlice())
	writeJSON(w, http.StatusOK, score)
}

// checkRequest and checkResponse back POST /api/subnets/check.
type checkRequest struct {
	Subnet          domain.Subnet          `json:"subnet"`
	MinCoefficients *rules.MinCoefficients `json:"min_coefficients,omitempty"`
}

type checkResponse struct {
	Score     nakamoto.Score         `json:"score"`
	Violation map[string]interface{} `json:"violation,omitempty"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := rules.Check(req.Subnet, req.MinCoefficients)
	writeJSON(w, http.StatusOK, checkResponse{
		Score:     res.Score,
		Violation: violationJSON(res.Violation),
	})
}

// extendRequest backs POST /api/subnets/extend.
type extendRequest struct {
	Subnet domain.Subnet `json:"subnet"`
	K      int           `json:"k"`
	Pool   []domain.Node `json:"pool"`
}

func (s *Server) handleExtend(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	change, err := changeengine.Extend(req.Subnet, req.K, req.Pool)
	if !writeEngineError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// optimizeRequest mirrors changeengine.OptimizeRequest for the wire.
type optimizeRequest struct {
	Subnet          domain.Subnet          `json:"subnet"`
	Budget          int                    `json:"budget"`
	Pool            []domain.Node          `json:"pool"`
	Pins            []domain.NodeID        `json:"pins,omitempty"`
	Exclusions      []domain.NodeID        `json:"exclusions,omitempty"`
	MinCoefficients *rules.MinCoefficients `json:"min_coefficients,omitempty"`
}

type optimizeResponse struct {
	Change    domain.SubnetChange     `json:"change"`
	Violation map[string]interface{} `json:"violation,omitempty"`
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := changeengine.Optimize(changeengine.OptimizeRequest{
		Subnet:          req.Subnet,
		Budget:          req.Budget,
		Pool:            req.Pool,
		Pins:            req.Pins,
		Exclusions:      req.Exclusions,
		MinCoefficients: req.MinCoefficients,
	})
	if !writeEngineError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, optimizeResponse{
		Change:    res.Change,
		Violation: violationJSON(res.Violation),
	})
}

// replaceRequest mirrors changeengine.ReplaceRequest for the wire.
type replaceRequest struct {
	Subnet       domain.Subnet   `json:"subnet"`
	VictimIDs    []domain.NodeID `json:"victim_ids"`
	Heal         bool            `json:"heal"`
	UnhealthyIDs []domain.NodeID `json:"unhealthy_ids,omitempty"`
	Pins         []domain.NodeID `json:"pins,omitempty"`
	Pool         []domain.Node   `json:"pool"`
}

func (s *Server) handleReplace(w http.ResponseWriter, r *http.Request) {
	var req replaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	change, err := changeengine.Replace(changeengine.ReplaceRequest{
		Subnet:       req.Subnet,
		VictimIDs:    req.VictimIDs,
		Heal:         req.Heal,
		UnhealthyIDs: req.UnhealthyIDs,
		Pins:         req.Pins,
		Pool:         req.Pool,
	})
	if !writeEngineError(w, err) {
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "node store not configured")
		return
	}
	nodes, err := s.store.ListNodes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "node store not configured")
		return
	}
	id := domain.NodeID(chi.URLParam(r, "id"))
	node, ok, err := s.store.GetNode(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "node not found")
		return
	}
	writeJSON(w, http.StatusOK, node)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "node store not configured")
		return
	}
	name := chi.URLParam(r, "name")
	pool, err := s.store.CandidatePool(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// decodeJSON decodes the request body into v, writing a 400 response and
// returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeEngineError maps a changeengine/domain error to an HTTP response. It
// returns false (nothing further to write) when it handled an error.
func writeEngineError(w http.ResponseWriter, err error) bool {
	if err == nil {
		return true
	}
	var insufficient *domain.InsufficientCandidatesError
	var unknownNode *domain.UnknownNodeError
	var pinnedRemoved *domain.PinnedAndRemovedError
	switch {
	case errors.As(err, &insufficient), errors.As(err, &unknownNode), errors.As(err, &pinnedRemoved):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
	return false
}

// violationJSON renders a rules.Violation as a structured map with its
// concrete type named, or nil if there was no violation.
func violationJSON(v rules.Violation) map[string]interface{} {
	if v == nil {
		return nil
	}
	out := map[string]interface{}{"message": v.Error()}
	switch e := v.(type) {
	case *domain.DfinityOwnedNodeMissingError:
		out["type"] = "dfinity_owned_node_missing"
	case *domain.FeatureSuperMajorityError:
		out["type"] = "feature_super_majority"
		out["feature"] = e.Feature.String()
		out["count"] = e.Count
		out["limit"] = e.Limit
	case *domain.SingleNodeProviderCanHaltError:
		out["type"] = "single_node_provider_can_halt"
	case *domain.BelowMinimumCoefficientError:
		out["type"] = "below_minimum_coefficient"
		out["feature"] = e.Feature.String()
		out["have"] = e.Have
		out["want"] = e.Want
	default:
		out["type"] = "unknown"
	}
	return out
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{"message": msg},
	})
}
