package handlers

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/types"
)

func queryID(q url.Values, key string) (string, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.New("invalid " + key)
	}
	return id.String(), nil
}

func queryTime(q url.Values, key string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New("invalid " + key + ", expected RFC 3339")
	}
	return &t, nil
}

func clientFilter(q url.Values) (types.ClientFilter, error) {
	return types.ClientFilter{Status: types.ClientStatus(q.Get("status"))}, nil
}

func propertyFilter(q url.Values) (types.PropertyFilter, error) {
	clientID, err := queryID(q, "client_id")
	if err != nil {
		return types.PropertyFilter{}, err
	}
	return types.PropertyFilter{ClientID: clientID, Zone: q.Get("zone")}, nil
}

func incidentFilter(q url.Values) (types.IncidentFilter, error) {
	propertyID, err := queryID(q, "property_id")
	if err != nil {
		return types.IncidentFilter{}, err
	}
	return types.IncidentFilter{
		PropertyID: propertyID,
		Status:     types.IncidentStatus(q.Get("status")),
		Severity:   types.Severity(q.Get("severity")),
	}, nil
}

func patrolFilter(q url.Values) (types.PatrolFilter, error) {
	propertyID, err := queryID(q, "property_id")
	if err != nil {
		return types.PatrolFilter{}, err
	}
	officerID, err := queryID(q, "officer_id")
	if err != nil {
		return types.PatrolFilter{}, err
	}
	return types.PatrolFilter{
		PropertyID: propertyID,
		OfficerID:  officerID,
		Status:     types.PatrolStatus(q.Get("status")),
	}, nil
}

func appointmentFilter(q url.Values) (types.AppointmentFilter, error) {
	var filter types.AppointmentFilter
	var err error
	if filter.OfficerID, err = queryID(q, "officer_id"); err != nil {
		return filter, err
	}
	if filter.PropertyID, err = queryID(q, "property_id"); err != nil {
		return filter, err
	}
	if filter.From, err = queryTime(q, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryTime(q, "to"); err != nil {
		return filter, err
	}
	return filter, nil
}

func activityFilter(q url.Values) (types.ActivityFilter, error) {
	userID, err := queryID(q, "user_id")
	if err != nil {
		return types.ActivityFilter{}, err
	}
	return types.ActivityFilter{
		UserID:     userID,
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}, nil
}

func financialFilter(q url.Values) (types.FinancialFilter, error) {
	clientID, err := queryID(q, "client_id")
	if err != nil {
		return types.FinancialFilter{}, err
	}
	return types.FinancialFilter{ClientID: clientID, Kind: q.Get("kind"), Status: q.Get("status")}, nil
}

func fileFilter(q url.Values) (types.FileFilter, error) {
	entityID, err := queryID(q, "entity_id")
	if err != nil {
		return types.FileFilter{}, err
	}
	return types.FileFilter{EntityType: q.Get("entity_type"), EntityID: entityID}, nil
}

func referenceFilter(q url.Values) (types.ReferenceFilter, error) {
	return types.ReferenceFilter{Category: q.Get("category"), Query: strings.TrimSpace(q.Get("q"))}, nil
}

func userFilter(q url.Values) (types.UserFilter, error) {
	return types.UserFilter{Role: types.Role(q.Get("role")), Status: types.UserStatus(q.Get("status"))}, nil
}
