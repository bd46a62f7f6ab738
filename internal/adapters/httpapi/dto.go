package httpapi

import "spycats/pkg/domain"

type breedResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type catResponse struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	YearsOfExperience int            `json:"years_of_experience"`
	Salary            string         `json:"salary"`
	Breed             *breedResponse `json:"breed"`
}

func newCatResponse(c domain.SpyCat) catResponse {
	out := catResponse{
		ID:                c.ID,
		Name:              c.Name,
		YearsOfExperience: c.YearsOfExperience,
		Salary:            c.Salary.StringFixed(domain.SalaryDecimalPlaces),
	}
	if c.Breed != nil {
		out.Breed = &breedResponse{ID: c.Breed.ID, Name: c.Breed.Name}
	} else if c.BreedID != "" {
		out.Breed = &breedResponse{ID: c.BreedID}
	}
	return out
}

type countryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type targetResponse struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Country    *countryResponse `json:"country"`
	Notes      string           `json:"notes"`
	IsComplete bool             `json:"is_complete"`
}

type missionResponse struct {
	ID         string           `json:"id"`
	Cat        *string          `json:"cat"`
	IsComplete bool             `json:"is_complete"`
	Targets    []targetResponse `json:"targets"`
}

func newMissionResponse(m domain.Mission) missionResponse {
	out := missionResponse{ID: m.ID, IsComplete: m.IsComplete, Targets: make([]targetResponse, 0, len(m.Targets))}
	if m.HasCat() {
		id := *m.CatID
		out.Cat = &id
	}
	for _, t := range m.Targets {
		tr := targetResponse{ID: t.ID, Name: t.Name, Notes: t.Notes, IsComplete: t.IsComplete}
		if t.Country != nil {
			tr.Country = &countryResponse{ID: t.Country.ID, Name: t.Country.Name}
		} else if t.CountryID != "" {
			tr.Country = &countryResponse{ID: t.CountryID}
		}
		out.Targets = append(out.Targets, tr)
	}
	return out
}
