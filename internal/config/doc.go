// Package config provides configuration parsing for saferoute projects.
//
// The configuration is stored in saferoute.json at the project root. The
// file is optional; defaults apply when it is missing. A .env file next to
// it is loaded into the environment, and SAFEROUTE_* variables override
// values from the file. Command-line flags are applied last by the CLI.
//
// # Configuration File Structure
//
//	{
//	  "type": "next-app",
//	  "out": "generated/routes.d.ts",
//	  "mode": "hierarchy",
//	  "routesDir": "src/app",
//	  "watch": {
//	    "debounce": "100ms",
//	    "pollInterval": "250ms",
//	    "ignore": ["*.test.tsx"],
//	    "statusAddr": "localhost:9464"
//	  },
//	  "publish": {
//	    "bucket": "my-artifacts",
//	    "prefix": "web/routes"
//	  }
//	}
//
// # Environment Overrides
//
//	SAFEROUTE_TYPE, SAFEROUTE_OUT, SAFEROUTE_MODE, SAFEROUTE_ROUTES_DIR,
//	SAFEROUTE_SOURCE, SAFEROUTE_PAGE_EXTENSIONS, SAFEROUTE_DEBOUNCE,
//	SAFEROUTE_POLL_INTERVAL, SAFEROUTE_WATCH_IGNORE, SAFEROUTE_STATUS_ADDR,
//	SAFEROUTE_SKIP_INITIAL, SAFEROUTE_PUBLISH_BUCKET, SAFEROUTE_PUBLISH_PREFIX,
//	SAFEROUTE_PUBLISH_REGION, SAFEROUTE_PUBLISH_ENDPOINT,
//	SAFEROUTE_PUBLISH_PATH_STYLE
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Output:", cfg.OutputPath())
package config
