package votetallyengine

import (
	"log/slog"

	httpadapter "livepoll/contexts/polling/vote-tally-engine/adapters/http"
	"livepoll/contexts/polling/vote-tally-engine/adapters/memory"
	"livepoll/contexts/polling/vote-tally-engine/application/commands"
	"livepoll/contexts/polling/vote-tally-engine/application/queries"
	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	"livepoll/contexts/polling/vote-tally-engine/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Store    *memory.Store
	Counters ports.CounterStore
}

type Dependencies struct {
	Polls     ports.PollCatalog
	Ledger    ports.VoteLedger
	Counters  ports.CounterStore
	Broadcast ports.Broadcaster
	Sessions  ports.SessionIssuer
	Observer  ports.VoteObserver
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	voteUseCase := commands.VoteUseCase{
		Polls:     deps.Polls,
		Ledger:    deps.Ledger,
		Counters:  deps.Counters,
		Broadcast: deps.Broadcast,
		Sessions:  deps.Sessions,
		Observer:  deps.Observer,
		Sequencer: commands.NewPollSequencer(),
		Logger:    deps.Logger,
	}
	tallyUseCase := queries.TallyUseCase{
		Polls:    deps.Polls,
		Counters: deps.Counters,
		Logger:   deps.Logger,
	}
	resultsUseCase := queries.ResultsUseCase{
		Polls:     deps.Polls,
		Broadcast: deps.Broadcast,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Votes:   voteUseCase,
			Tallies: tallyUseCase,
			Results: resultsUseCase,
			Logger:  deps.Logger,
		},
		Counters: deps.Counters,
	}
}

// NewInMemoryModule wires every port to in-process adapters. Only the
// broadcaster is supplied by the caller since it belongs to the platform.
func NewInMemoryModule(seed []entities.Poll, broadcast ports.Broadcaster, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Polls:     store,
		Ledger:    store,
		Counters:  memory.NewCounterStore(),
		Broadcast: broadcast,
		Sessions:  store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
