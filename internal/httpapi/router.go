package httpapi

import (
	chi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes declares the public HTTP API. Everything except the probes and
// metrics is scoped to one business.
func (s *Server) routes() {
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", promhttp.Handler())

	s.rt.Route("/v1/businesses/{businessID}", func(r chi.Router) {
		r.Use(s.loadBusiness)

		// Chart of accounts
		r.Get("/account-groups", s.listGroups)
		r.Post("/account-groups", s.createGroup)
		r.Get("/accounts", s.listAccounts)
		r.Post("/accounts", s.createAccount)
		r.Get("/accounts/resolve", s.resolveAccount)
		r.Get("/accounts/search", s.searchAccounts)
		r.Post("/accounts/template", s.applyTemplate)
		r.Get("/accounts/{id}", s.getAccount)
		r.Patch("/accounts/{id}", s.updateAccount)
		r.Delete("/accounts/{id}", s.deactivateAccount)

		// Fiscal calendar
		r.Get("/fiscal-years", s.listYears)
		r.Post("/fiscal-years", s.createYear)
		r.Get("/fiscal-years/{id}", s.getYear)
		r.Post("/fiscal-years/{id}/monthly-periods", s.createMonthlyPeriods)
		r.Get("/fiscal-years/{id}/periods", s.listPeriods)
		r.Post("/fiscal-years/{id}/periods", s.createPeriod)
		r.Post("/fiscal-years/{id}/begin-closing", s.beginClosing)
		r.Post("/fiscal-years/{id}/complete-closing", s.completeClosing)
		r.Post("/fiscal-periods/{id}/close", s.closePeriod)
		r.Post("/fiscal-periods/{id}/reopen", s.reopenPeriod)

		// Documents
		r.Get("/documents", s.listDocuments)
		r.Post("/documents", s.createDocument)
		r.Post("/documents/post-batch", s.postBatch)
		r.Get("/documents/{id}", s.getDocument)
		r.Patch("/documents/{id}", s.updateDocument)
		r.Delete("/documents/{id}", s.deleteDocument)
		r.Post("/documents/{id}/complete", s.completeDocument)
		r.Post("/documents/{id}/revert", s.revertDocument)
		r.Post("/documents/{id}/post", s.postDocument)
		r.Post("/documents/{id}/void", s.voidDocument)

		// Journals are read-only over HTTP; documents are the way in.
		r.Get("/journals", s.listJournals)
		r.Get("/journals/{id}", s.getJournal)

		// Ledgers and balances
		r.Get("/ledgers", s.listLedgers)
		r.Post("/ledgers", s.openLedger)
		r.Put("/ledgers/{id}/opening-balance", s.setOpeningBalance)
		r.Get("/ledgers/{id}/balance", s.balanceAsOf)
		r.Get("/ledgers/{id}/closing-balance", s.closingBalance)
		r.Get("/ledgers/{id}/periods/{periodID}/activity", s.periodActivity)

		r.Post("/sequences/{key}/next", s.nextNumber)
	})
}
