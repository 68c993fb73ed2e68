package memory

import (
	"github.com/tinoosan/bookkeeping/internal/service/account"
	"github.com/tinoosan/bookkeeping/internal/service/balance"
	"github.com/tinoosan/bookkeeping/internal/service/document"
	"github.com/tinoosan/bookkeeping/internal/service/fiscal"
	"github.com/tinoosan/bookkeeping/internal/service/journal"
	"github.com/tinoosan/bookkeeping/internal/service/sequence"
	"github.com/tinoosan/bookkeeping/internal/storage"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ storage.Store      = (*Store)(nil)
	_ storage.Repository = (*txView)(nil)
	// Service layer repos
	_ account.Repo  = (*txView)(nil)
	_ fiscal.Repo   = (*txView)(nil)
	_ journal.Repo  = (*txView)(nil)
	_ sequence.Repo = (*txView)(nil)
	_ balance.Repo  = (*txView)(nil)
	_ document.Repo = (*txView)(nil)
)
