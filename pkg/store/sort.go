package store

import "formsapi/pkg/domain"

var (
	DefaultFormSort     = domain.Sort{Field: domain.SortCreatedAt, Order: domain.SortDesc}
	DefaultQuestionSort = domain.Sort{Field: domain.SortOrderPosition, Order: domain.SortAsc}
	DefaultResponseSort = domain.Sort{Field: domain.SortCreatedAt, Order: domain.SortDesc}
)

// Sortable columns per listing, keyed by the public field name.
var (
	FormSortColumns = map[domain.SortField]string{
		domain.SortCreatedAt: "created_at",
		domain.SortUpdatedAt: "updated_at",
		domain.SortTitle:     "title",
	}
	QuestionSortColumns = map[domain.SortField]string{
		domain.SortOrderPosition: "position",
		domain.SortCreatedAt:     "created_at",
		domain.SortUpdatedAt:     "updated_at",
	}
	ResponseSortColumns = map[domain.SortField]string{
		domain.SortCreatedAt:      "created_at",
		domain.SortUpdatedAt:      "updated_at",
		domain.SortRespondentName: "respondent_name",
	}
)

// resolveSort fills missing parts of s from def and falls back to def when
// the field is not sortable for this listing.
func resolveSort(s domain.Sort, columns map[domain.SortField]string, def domain.Sort) domain.Sort {
	if s.Field == "" {
		s.Field = def.Field
	}
	if _, ok := columns[s.Field]; !ok {
		return def
	}
	switch s.Order {
	case domain.SortAsc, domain.SortDesc:
	case "":
		if s.Field == def.Field {
			s.Order = def.Order
		} else {
			s.Order = domain.SortAsc
		}
	default:
		s.Order = domain.SortAsc
	}
	return s
}

func orderClause(s domain.Sort, columns map[domain.SortField]string, def domain.Sort) string {
	s = resolveSort(s, columns, def)
	return columns[s.Field] + " " + string(s.Order)
}
