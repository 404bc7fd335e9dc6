// Package binder binds HTTP request payloads to structs and writes JSON
// responses.
//
// JSON decodes request bodies strictly (unknown fields and trailing data are
// errors); Query maps URL parameters onto tagged struct fields, leaving
// absent parameters at their pre-filled defaults. WriteJSON and WriteError
// are the matching response helpers so handlers stay symmetrical.
//
//	type listParams struct {
//		Skip     int    `query:"skip"`
//		Limit    int    `query:"limit"`
//		Category string `query:"category"`
//	}
//
//	params := listParams{Limit: 10}
//	if err := binder.Query(r, &params); err != nil {
//		binder.WriteError(w, http.StatusBadRequest, "invalid query parameters")
//		return
//	}
package binder
