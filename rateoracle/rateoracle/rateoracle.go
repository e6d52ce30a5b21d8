package rateoracle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Ethernal-Tech/fx-oracle/common"
	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/oracle/oracle"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/api"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/api/controllers"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/api/utils"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/core"
	databaseaccess "github.com/Ethernal-Tech/fx-oracle/rateoracle/database_access"
	"github.com/Ethernal-Tech/fx-oracle/telemetry"
	"github.com/hashicorp/go-hclog"
)

const MainComponentName = "rateoracle"

type RateOracleImpl struct {
	ctx          context.Context
	shouldRunAPI bool
	historyDB    *databaseaccess.BBoltDatabase
	oracle       *oracle.OracleImpl
	api          core.API
	telemetry    *telemetry.Telemetry
	logger       hclog.Logger
	errorCh      chan error
}

var _ core.RateOracle = (*RateOracleImpl)(nil)

func NewRateOracle(
	ctx context.Context,
	appConfig *core.AppConfig,
	shouldRunAPI bool,
	logger hclog.Logger,
) (*RateOracleImpl, error) {
	telemetryObj := telemetry.NewTelemetry(appConfig.Telemetry, logger.Named("telemetry"))

	if err := common.CreateDirectoryIfNotExists(appConfig.Settings.DbsPath, 0770); err != nil {
		return nil, fmt.Errorf("failed to create db directory. err: %w", err)
	}

	historyDB, err := databaseaccess.NewDatabase(
		filepath.Join(appConfig.Settings.DbsPath, MainComponentName+".db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open rates history database: %w", err)
	}

	// the history db also rides along as a persistence sink for every
	// aggregated rate
	oracleObj, err := oracle.NewOracle(
		ctx, appConfig.SeparateConfigs(), []oracleCore.RateSink{historyDB}, logger.Named("oracle"))
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle. err: %w", err)
	}

	var apiObj *api.APIImpl

	if shouldRunAPI {
		apiLogger, err := utils.NewAPILogger(appConfig)
		if err != nil {
			return nil, err
		}

		apiControllers := []core.APIController{
			controllers.NewRatesController(
				oracleObj.Aggregator(), oracleObj.CurrencyValidator(), oracleObj.Cache(),
				historyDB, apiLogger.Named("rates_controller")),
			controllers.NewHealthController(
				oracleObj.Aggregator(), oracleObj.Cache(), oracleObj.FanoutHub(),
				apiLogger.Named("health_controller")),
			controllers.NewWSController(
				oracleObj.FanoutHub(), appConfig.Fanout, apiLogger.Named("ws_controller")),
		}

		apiObj, err = api.NewAPI(ctx, appConfig.APIConfig, apiControllers, apiLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create api: %w", err)
		}
	}

	return &RateOracleImpl{
		ctx:          ctx,
		shouldRunAPI: shouldRunAPI,
		historyDB:    historyDB,
		oracle:       oracleObj,
		api:          apiObj,
		telemetry:    telemetryObj,
		logger:       logger,
	}, nil
}

func (ro *RateOracleImpl) Start() error {
	ro.logger.Debug("Starting RateOracle")

	err := ro.telemetry.Start()
	if err != nil {
		return err
	}

	err = ro.oracle.Start()
	if err != nil {
		return fmt.Errorf("failed to start oracle. error: %w", err)
	}

	if ro.shouldRunAPI {
		go ro.api.Start()
	}

	ro.errorCh = make(chan error, 1)

	go ro.errorHandler()

	ro.logger.Debug("Started RateOracle")

	return nil
}

func (ro *RateOracleImpl) Dispose() error {
	ro.logger.Info("Disposing RateOracle")

	errs := make([]error, 0)

	if ro.shouldRunAPI {
		if err := ro.api.Dispose(); err != nil {
			ro.logger.Error("error while disposing api", "err", err)
			errs = append(errs, fmt.Errorf("error while disposing api. err: %w", err))
		}
	}

	if err := ro.oracle.Dispose(); err != nil {
		ro.logger.Error("error while disposing oracle", "err", err)
		errs = append(errs, fmt.Errorf("error while disposing oracle. err: %w", err))
	}

	if err := ro.historyDB.Close(); err != nil {
		ro.logger.Error("Failed to close rates history db", "err", err)
		errs = append(errs, fmt.Errorf("failed to close rates history db. err: %w", err))
	}

	if err := ro.telemetry.Close(context.Background()); err != nil {
		ro.logger.Error("Failed to close telemetry", "err", err)
		errs = append(errs, fmt.Errorf("failed to close telemetry. err: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while disposing rateoracle. errors: %w", errors.Join(errs...))
	}

	ro.logger.Info("RateOracle disposed")

	return nil
}

func (ro *RateOracleImpl) ErrorCh() <-chan error {
	return ro.errorCh
}

func (ro *RateOracleImpl) errorHandler() {
outsideloop:
	for {
		select {
		case err := <-ro.oracle.ErrorCh():
			if err != nil {
				ro.logger.Error("oracle error", "err", err)
				ro.errorCh <- err
			}
		case <-ro.ctx.Done():
			break outsideloop
		}
	}

	ro.logger.Debug("Exiting rateoracle error handler")
}
