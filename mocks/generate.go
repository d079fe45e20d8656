package mocks

//go:generate mockgen -destination=./mock_bar_source.go -package=mocks github.com/guozhongyan/anxiousmonkey-backtests/internal/backtest/engine/engine_v1/datasource BarSource
//go:generate mockgen -destination=./mock_run_store.go -package=mocks github.com/guozhongyan/anxiousmonkey-backtests/internal/backtest/engine RunStore
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/guozhongyan/anxiousmonkey-backtests/pkg/marketdata/provider Provider
