// Package archive persists pipeline output to Postgres: accepted trade
// updates and snapshot publication metadata. Writers batch rows and flush
// on size or interval; duplicate rows are ignored via conflict targets so
// feed reconnect replays are harmless.
//
// Schema:
//
//	CREATE TABLE option_trades (
//	    symbol      TEXT             NOT NULL,
//	    price       DOUBLE PRECISION NOT NULL,
//	    size        BIGINT           NOT NULL,
//	    event_ts    BIGINT           NOT NULL,
//	    received_at BIGINT           NOT NULL,
//	    UNIQUE (symbol, event_ts, price, size)
//	);
//
//	CREATE TABLE snapshots (
//	    key          TEXT PRIMARY KEY,
//	    underlying   TEXT   NOT NULL,
//	    expiration   TEXT   NOT NULL,
//	    captured_ts  BIGINT NOT NULL,
//	    atm          INT    NOT NULL,
//	    range_points INT    NOT NULL,
//	    contracts    INT    NOT NULL
//	);
package archive
