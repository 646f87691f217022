package chain

// factoryABIJSON covers the registry calls this client makes against the
// market factory. The MarketCreated event is listed for completeness; markets
// are discovered by polling, not by subscription.
const factoryABIJSON = `[
  {"type":"function","name":"getMarketCount","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getMarkets","stateMutability":"view",
   "inputs":[{"name":"offset","type":"uint256"},{"name":"limit","type":"uint256"}],
   "outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"createMarket","stateMutability":"nonpayable",
   "inputs":[{"name":"_question","type":"string"},{"name":"_description","type":"string"},
             {"name":"_category","type":"string"},{"name":"_endTime","type":"uint256"}],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"event","name":"MarketCreated","anonymous":false,
   "inputs":[{"name":"marketAddress","type":"address","indexed":true},
             {"name":"creator","type":"address","indexed":true},
             {"name":"question","type":"string","indexed":false},
             {"name":"category","type":"string","indexed":false},
             {"name":"endTime","type":"uint256","indexed":false},
             {"name":"marketIndex","type":"uint256","indexed":false}]}
]`

// marketABIJSON covers the per-market calls: the single info tuple read and
// the two payable buy entry points.
const marketABIJSON = `[
  {"type":"function","name":"getMarketInfo","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"string"},{"name":"","type":"string"},{"name":"","type":"string"},
              {"name":"","type":"address"},{"name":"","type":"uint256"},{"name":"","type":"uint256"},
              {"name":"","type":"uint256"},{"name":"","type":"uint256"},{"name":"","type":"uint256"},
              {"name":"","type":"uint8"},{"name":"","type":"uint8"}]},
  {"type":"function","name":"buyYes","stateMutability":"payable","inputs":[],"outputs":[]},
  {"type":"function","name":"buyNo","stateMutability":"payable","inputs":[],"outputs":[]}
]`
