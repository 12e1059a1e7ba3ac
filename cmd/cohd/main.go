// Command cohd is the ambient daemon wrapping the synchronous verifier
// for a host that wants to run it as a long-lived service: spec §5
// describes a host wrapping the pure verifier in its own concurrency
// abstraction without leaking suspension into any hashing or
// admissibility path. cohd's HTTP handlers call the verifier
// synchronously per request, persist accepted receipts to a
// bbolt-backed ledger, and expose Prometheus metrics alongside a
// health endpoint.
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noeticanlabs/cnsc-haai-sub000/canon"
	"github.com/noeticanlabs/cnsc-haai-sub000/internal/config"
	"github.com/noeticanlabs/cnsc-haai-sub000/internal/obslog"
	"github.com/noeticanlabs/cnsc-haai-sub000/internal/wire"
	"github.com/noeticanlabs/cnsc-haai-sub000/khash"
	"github.com/noeticanlabs/cnsc-haai-sub000/ledger"
	"github.com/noeticanlabs/cnsc-haai-sub000/q18"
	"github.com/noeticanlabs/cnsc-haai-sub000/record"
	"github.com/noeticanlabs/cnsc-haai-sub000/slab"
	"github.com/noeticanlabs/cnsc-haai-sub000/verifier"
)

var (
	trajectoriesVerified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cohd_trajectories_verified_total",
		Help: "Total number of trajectories accepted by the verifier.",
	})
	rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cohd_rejections_total",
		Help: "Total number of trajectory rejections, by kind.",
	}, []string{"kind"})
	verifyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cohd_verify_latency_seconds",
		Help:    "Wall-clock latency of a single Verify call.",
		Buckets: prometheus.DefBuckets,
	})
)

type server struct {
	cfg    config.KernelConfig
	db     *ledger.DB
	logger interface {
		Error(msg string, args ...any)
		Info(msg string, args ...any)
	}
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type verifyRequest struct {
	InitialStateHash string            `json:"initial_state_hash"`
	InitialBudget    int64             `json:"initial_budget"`
	Kappa            int64             `json:"kappa"`
	Genesis          string            `json:"genesis_chain_digest,omitempty"`
	SlabSize         int               `json:"slab_size,omitempty"`
	Records          []wire.RecordJSON `json:"records"`
	Slabs            []*wire.SlabJSON  `json:"slabs,omitempty"`
}

type verifyResponse struct {
	Ok               bool   `json:"ok"`
	Err              string `json:"err,omitempty"`
	Index            int    `json:"index,omitempty"`
	Detail           string `json:"detail,omitempty"`
	FinalStateHash   string `json:"final_state_hash,omitempty"`
	FinalBudget      int64  `json:"final_budget,omitempty"`
	FinalChainDigest string `json:"final_chain_digest,omitempty"`
}

func (s *server) handleVerify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { verifyLatency.Observe(time.Since(start).Seconds()) }()

	w.Header().Set("Content-Type", "application/json")

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(verifyResponse{Ok: false, Err: "bad request: " + err.Error()})
		return
	}

	initState, err := wire.ParseDigest(req.InitialStateHash)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(verifyResponse{Ok: false, Err: err.Error()})
		return
	}
	genesis := khash.GenesisChainDigest()
	if req.Genesis != "" {
		genesis, err = wire.ParseChainDigest(req.Genesis)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			if errors.Is(err, wire.ErrBadPrevDigest) {
				rejections.WithLabelValues(string(verifier.KindBadPrevDigest)).Inc()
				_ = json.NewEncoder(w).Encode(verifyResponse{Ok: false, Err: string(verifier.KindBadPrevDigest), Detail: err.Error()})
				return
			}
			_ = json.NewEncoder(w).Encode(verifyResponse{Ok: false, Err: err.Error()})
			return
		}
	}
	slabSize := req.SlabSize
	if slabSize <= 0 {
		slabSize = s.cfg.SlabSize
	}

	params := verifier.Params{
		InitialStateHash: initState,
		InitialBudget:    q18.Q(req.InitialBudget),
		Kappa:            q18.Q(req.Kappa),
		Genesis:          genesis,
		SlabSize:         slabSize,
	}

	recs := make([]verifier.RecordInput, 0, len(req.Records))
	cores := make([]record.Core, 0, len(req.Records))
	for i, rj := range req.Records {
		core, err := wire.Record(rj)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			if errors.Is(err, canon.ErrFloatInConsensusPath) {
				rejections.WithLabelValues(string(verifier.KindFloatInConsensusPath)).Inc()
				_ = json.NewEncoder(w).Encode(verifyResponse{Ok: false, Err: string(verifier.KindFloatInConsensusPath), Index: i, Detail: err.Error()})
				return
			}
			_ = json.NewEncoder(w).Encode(verifyResponse{Ok: false, Err: err.Error(), Index: i})
			return
		}
		var sideTable *slab.SideTable
		if i < len(req.Slabs) {
			sideTable, err = wire.Slab(req.Slabs[i])
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				if errors.Is(err, wire.ErrBadPrevDigest) {
					rejections.WithLabelValues(string(verifier.KindBadPrevDigest)).Inc()
					_ = json.NewEncoder(w).Encode(verifyResponse{Ok: false, Err: string(verifier.KindBadPrevDigest), Index: i, Detail: err.Error()})
					return
				}
				_ = json.NewEncoder(w).Encode(verifyResponse{Ok: false, Err: err.Error(), Index: i})
				return
			}
		}
		cores = append(cores, core)
		recs = append(recs, verifier.RecordInput{Core: core, Slab: sideTable})
	}

	out, err := verifier.Verify(params, verifier.NewSliceSource(recs))
	if err != nil {
		if re, ok := err.(*verifier.RejectError); ok {
			rejections.WithLabelValues(string(re.Kind)).Inc()
			w.WriteHeader(http.StatusUnprocessableEntity)
			_ = json.NewEncoder(w).Encode(verifyResponse{Ok: false, Err: string(re.Kind), Index: re.Index, Detail: re.Detail})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(verifyResponse{Ok: false, Err: err.Error()})
		return
	}

	trajectoriesVerified.Inc()
	s.persist(cores, genesis)

	_ = json.NewEncoder(w).Encode(verifyResponse{
		Ok:               true,
		FinalStateHash:   hex.EncodeToString(out.FinalStateHash[:]),
		FinalBudget:      int64(out.FinalBudget),
		FinalChainDigest: hex.EncodeToString(out.FinalChainDigest[:]),
	})
}

// persist writes each accepted record's canonical core and chain digest
// to the ledger. A ledger write failure is logged but never turns an
// already-admitted trajectory back into a rejection: the ledger is an
// external collaborator, not part of admissibility.
func (s *server) persist(cores []record.Core, genesis khash.Digest) {
	prevCD := genesis
	for _, core := range cores {
		b, err := core.CanonicalBytes()
		if err != nil {
			s.logger.Error("canonicalize accepted record", "error", err)
			return
		}
		rid, err := core.ReceiptID()
		if err != nil {
			s.logger.Error("receipt id for accepted record", "error", err)
			return
		}
		cd := record.ChainDigest(prevCD, rid)
		if err := s.db.PutRecord(rid, b, cd, nil); err != nil {
			s.logger.Error("persist record", "error", err)
		}
		prevCD = cd
	}
}

func main() {
	addr := flag.String("addr", ":9115", "listen address for /metrics and /healthz")
	dataPath := flag.String("ledger", "cohd-ledger.db", "path to the bbolt-backed receipt ledger")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	kappa := flag.Int64("kappa", int64(q18.Scale), "fixed risk coefficient kappa (Q18 scaled)")
	slabSize := flag.Int("slab-size", config.DefaultSlabSize, "protocol slab length L")
	flag.Parse()

	cfg := config.KernelConfig{
		Kappa:    q18.Q(*kappa),
		SlabSize: *slabSize,
		LogLevel: *logLevel,
	}
	if err := config.Validate(cfg); err != nil {
		panic(err)
	}

	logger := obslog.New(cfg.LogLevel)

	db, err := ledger.Open(*dataPath)
	if err != nil {
		logger.Error("open ledger", "error", err)
		return
	}
	defer db.Close()

	s := &server{cfg: cfg, db: db, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/verify", s.handleVerify)
	mux.Handle("/metrics", promhttp.Handler())

	logger.Info("cohd listening", "addr", *addr, "slab_size", cfg.SlabSize)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("listen", "error", err)
	}
}
