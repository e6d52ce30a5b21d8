package cligenerateconfigs

import (
	"fmt"
	"path"

	"github.com/Ethernal-Tech/fx-oracle/common"
	loggerInfra "github.com/Ethernal-Tech/fx-oracle/logger"
	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/core"
	"github.com/Ethernal-Tech/fx-oracle/telemetry"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

const (
	fixerIOAPIKeyFlag     = "fixerio-api-key"
	openExchangeAppIDFlag = "openexchange-app-id"
	currencyAPIKeyFlag    = "currencyapi-api-key"
	primaryProviderFlag   = "primary-provider"

	redisURLFlag     = "redis-url"
	kafkaBrokersFlag = "kafka-brokers"

	baseCurrenciesFlag   = "base-currencies"
	targetCurrenciesFlag = "target-currencies"
	updateIntervalFlag   = "update-interval-ms"

	logsPathFlag = "logs-path"
	dbsPathFlag  = "dbs-path"

	apiPortFlag = "api-port"
	apiKeysFlag = "api-keys"

	prometheusAddrFlag = "prometheus-addr"

	outputDirFlag      = "output-dir"
	outputFileNameFlag = "output-file-name"

	fixerIOAPIKeyFlagDesc     = "api key for the fixer.io provider"
	openExchangeAppIDFlagDesc = "app id for the open exchange rates provider"
	currencyAPIKeyFlagDesc    = "api key for the currencyapi provider"
	primaryProviderFlagDesc   = "provider whose quotes are preferred when scoring confidence"

	redisURLFlagDesc     = "redis url, empty means the in memory cache is used"
	kafkaBrokersFlagDesc = "kafka brokers for rate event publishing, empty disables publishing"

	baseCurrenciesFlagDesc   = "base currencies tracked by the ingestion worker"
	targetCurrenciesFlagDesc = "target currencies tracked by the ingestion worker"
	updateIntervalFlagDesc   = "ingestion interval in milliseconds"

	logsPathFlagDesc = "Path to where logs will be stored"
	dbsPathFlagDesc  = "Path to where databases will be stored"

	apiPortFlagDesc = "Port at which API should run"
	apiKeysFlagDesc = "(Mandatory) List of keys for API access"

	prometheusAddrFlagDesc = "address for the prometheus metrics endpoint, empty disables telemetry"

	outputDirFlagDesc      = "Path to config json output directory"
	outputFileNameFlagDesc = "Config json output file name"

	defaultPrimaryProvider = oracleCore.FetcherFixerIO
	defaultLogsPath        = "./logs"
	defaultDBsPath         = "./db"
	defaultAPIPort         = 40000
	defaultOutputDir       = "./"
	defaultOutputFileName  = "config.json"

	fixerIOURL      = "http://data.fixer.io/api"
	openExchangeURL = "https://openexchangerates.org/api"
	currencyAPIURL  = "https://api.currencyapi.com/v3"
)

type generateConfigsParams struct {
	fixerIOAPIKey     string
	openExchangeAppID string
	currencyAPIKey    string
	primaryProvider   string

	redisURL     string
	kafkaBrokers []string

	baseCurrencies   []string
	targetCurrencies []string
	updateIntervalMs uint64

	logsPath string
	dbsPath  string

	apiPort uint32
	apiKeys []string

	prometheusAddr string

	outputDir      string
	outputFileName string
}

func (p *generateConfigsParams) validateFlags() error {
	switch p.primaryProvider {
	case oracleCore.FetcherFixerIO, oracleCore.FetcherOpenExchange,
		oracleCore.FetcherCurrencyAPI, oracleCore.FetcherDummy:
	default:
		return fmt.Errorf("invalid %s: %s", primaryProviderFlag, p.primaryProvider)
	}

	if len(p.apiKeys) == 0 {
		return fmt.Errorf("specify at least one %s", apiKeysFlag)
	}

	return nil
}

func (p *generateConfigsParams) setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&p.fixerIOAPIKey,
		fixerIOAPIKeyFlag,
		"",
		fixerIOAPIKeyFlagDesc,
	)
	cmd.Flags().StringVar(
		&p.openExchangeAppID,
		openExchangeAppIDFlag,
		"",
		openExchangeAppIDFlagDesc,
	)
	cmd.Flags().StringVar(
		&p.currencyAPIKey,
		currencyAPIKeyFlag,
		"",
		currencyAPIKeyFlagDesc,
	)
	cmd.Flags().StringVar(
		&p.primaryProvider,
		primaryProviderFlag,
		defaultPrimaryProvider,
		primaryProviderFlagDesc,
	)

	cmd.Flags().StringVar(
		&p.redisURL,
		redisURLFlag,
		"",
		redisURLFlagDesc,
	)
	cmd.Flags().StringArrayVar(
		&p.kafkaBrokers,
		kafkaBrokersFlag,
		nil,
		kafkaBrokersFlagDesc,
	)

	cmd.Flags().StringArrayVar(
		&p.baseCurrencies,
		baseCurrenciesFlag,
		nil,
		baseCurrenciesFlagDesc,
	)
	cmd.Flags().StringArrayVar(
		&p.targetCurrencies,
		targetCurrenciesFlag,
		nil,
		targetCurrenciesFlagDesc,
	)
	cmd.Flags().Uint64Var(
		&p.updateIntervalMs,
		updateIntervalFlag,
		0,
		updateIntervalFlagDesc,
	)

	cmd.Flags().StringVar(
		&p.logsPath,
		logsPathFlag,
		defaultLogsPath,
		logsPathFlagDesc,
	)
	cmd.Flags().StringVar(
		&p.dbsPath,
		dbsPathFlag,
		defaultDBsPath,
		dbsPathFlagDesc,
	)

	cmd.Flags().Uint32Var(
		&p.apiPort,
		apiPortFlag,
		defaultAPIPort,
		apiPortFlagDesc,
	)
	cmd.Flags().StringArrayVar(
		&p.apiKeys,
		apiKeysFlag,
		nil,
		apiKeysFlagDesc,
	)

	cmd.Flags().StringVar(
		&p.prometheusAddr,
		prometheusAddrFlag,
		"",
		prometheusAddrFlagDesc,
	)

	cmd.Flags().StringVar(
		&p.outputDir,
		outputDirFlag,
		defaultOutputDir,
		outputDirFlagDesc,
	)
	cmd.Flags().StringVar(
		&p.outputFileName,
		outputFileNameFlag,
		defaultOutputFileName,
		outputFileNameFlagDesc,
	)
}

func (p *generateConfigsParams) Execute() (common.CommandResult, error) {
	appConfig := &core.AppConfig{
		AppConfig: oracleCore.AppConfig{
			Fetchers: map[string]*oracleCore.FetcherConfig{
				oracleCore.FetcherFixerIO: {
					URL:    fixerIOURL,
					APIKey: p.fixerIOAPIKey,
				},
				oracleCore.FetcherOpenExchange: {
					URL:    openExchangeURL,
					APIKey: p.openExchangeAppID,
				},
				oracleCore.FetcherCurrencyAPI: {
					URL:    currencyAPIURL,
					APIKey: p.currencyAPIKey,
				},
			},
			Aggregator: oracleCore.AggregatorConfig{
				PrimaryProvider: p.primaryProvider,
			},
			Cache: oracleCore.CacheConfig{
				RedisURL: p.redisURL,
			},
			Ingest: oracleCore.IngestConfig{
				BaseCurrencies:       p.baseCurrencies,
				TargetCurrencies:     p.targetCurrencies,
				UpdateIntervalMillis: p.updateIntervalMs,
			},
			History: oracleCore.HistoryConfig{
				KafkaBrokers: p.kafkaBrokers,
			},
			Settings: oracleCore.AppSettings{
				Logger: loggerInfra.LoggerConfig{
					LogFilePath:   path.Join(p.logsPath, "rate-oracle.log"),
					LogLevel:      hclog.Debug,
					JSONLogFormat: false,
					AppendFile:    true,
				},
				DbsPath: path.Clean(p.dbsPath),
			},
		},
		APIConfig: core.APIConfig{
			Port:    p.apiPort,
			APIKeys: p.apiKeys,
		},
		Telemetry: telemetry.TelemetryConfig{
			PrometheusAddr: p.prometheusAddr,
		},
	}

	appConfig.FillOut()

	outputDirPath := path.Clean(p.outputDir)
	if err := common.CreateDirectoryIfNotExists(outputDirPath, 0770); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	configPath := path.Join(outputDirPath, p.outputFileName)
	if err := common.SaveJson(appConfig, configPath, true); err != nil {
		return nil, fmt.Errorf("failed to create rate oracle config json: %w", err)
	}

	return &CmdResult{
		configPath: configPath,
	}, nil
}
