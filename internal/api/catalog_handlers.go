package api

import (
	"net/http"

	"github.com/BTreeMap/Healora/internal/catalog"
	"github.com/BTreeMap/Healora/internal/models"
)

type resourcesResult struct {
	Region    models.Region `json:"region"`
	Resources []string      `json:"resources"`
}

type therapistResult struct {
	models.Therapist
	Details string `json:"details"`
}

// resourcesHandler handles GET /resources?region=
func (s *Server) resourcesHandler(w http.ResponseWriter, r *http.Request) {
	region := catalog.ResolveRegion(r.URL.Query().Get("region"))
	writeJSONResponse(w, http.StatusOK, models.Success(resourcesResult{
		Region:    region,
		Resources: s.svc.Catalog.ResourcesFor(region),
	}))
}

// emergencyResourcesHandler handles GET /resources/emergency?region=
func (s *Server) emergencyResourcesHandler(w http.ResponseWriter, r *http.Request) {
	region := models.Region(r.URL.Query().Get("region"))
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(s.svc.Catalog.EmergencyResources(region), nil))
}

// listTherapistsHandler handles GET /therapists
func (s *Server) listTherapistsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(s.svc.Catalog.Therapists()))
}

// getTherapistHandler handles GET /therapists/{id}
func (s *Server) getTherapistHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, ok := s.svc.Catalog.Therapist(id)
	if !ok {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Therapist not found"))
		return
	}
	details, _ := s.svc.Catalog.TherapistDetails(id)
	writeJSONResponse(w, http.StatusOK, models.Success(therapistResult{Therapist: t, Details: details}))
}
