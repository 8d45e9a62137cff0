package contract

// Built-in factory IDs.
const (
	ERC20Factory  = "erc20-factory"
	ERC721Factory = "nft-factory"
)

// Deployment event signatures emitted by the factories.
const (
	TokenDeployedEvent = "TokenDeployed(address indexed token, string name, string symbol)"
	NFTDeployedEvent   = "NFTDeployed(address indexed nft, string name, string symbol)"
)

// Function selectors:
//
//	createToken(string,string,uint256)        → 0x5165749e
//	getDeployedTokens()                       → tuple(address,address)[]
//	createNFT(string,string,string,uint96)    → address
//	getDeployedNFTs()                         → tuple(address,address)[]
func init() {
	RegisterBuiltin(BuiltinKind{
		ID:          ERC20Factory,
		Name:        "ERC20 Factory",
		Description: "Deploys fixed-supply ERC-20 tokens owned by the caller.",
		ABI:         mustParseABI(erc20FactoryABI),
		Create:      "createToken",
		Event:       TokenDeployedEvent,
		Registry:    "getDeployedTokens",
	})
	RegisterBuiltin(BuiltinKind{
		ID:          ERC721Factory,
		Name:        "ERC721 Factory",
		Description: "Deploys ERC-721 collections with ERC-2981 royalties.",
		ABI:         mustParseABI(erc721FactoryABI),
		Create:      "createNFT",
		Event:       NFTDeployedEvent,
		Registry:    "getDeployedNFTs",
	})
}

const erc20FactoryABI = `[
  {
    "type": "function",
    "name": "createToken",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "name", "type": "string"},
      {"name": "symbol", "type": "string"},
      {"name": "initialSupply", "type": "uint256"}
    ],
    "outputs": [{"name": "", "type": "address"}]
  },
  {
    "type": "function",
    "name": "getDeployedTokens",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [
      {
        "name": "",
        "type": "tuple[]",
        "components": [
          {"name": "creator", "type": "address"},
          {"name": "token", "type": "address"}
        ]
      }
    ]
  },
  {
    "type": "event",
    "name": "TokenDeployed",
    "anonymous": false,
    "inputs": [
      {"name": "token", "type": "address", "indexed": true},
      {"name": "name", "type": "string", "indexed": false},
      {"name": "symbol", "type": "string", "indexed": false}
    ]
  }
]`

const erc721FactoryABI = `[
  {
    "type": "function",
    "name": "createNFT",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "name", "type": "string"},
      {"name": "symbol", "type": "string"},
      {"name": "baseURI", "type": "string"},
      {"name": "royaltyPercentage", "type": "uint96"}
    ],
    "outputs": [{"name": "", "type": "address"}]
  },
  {
    "type": "function",
    "name": "getDeployedNFTs",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [
      {
        "name": "",
        "type": "tuple[]",
        "components": [
          {"name": "creator", "type": "address"},
          {"name": "nft", "type": "address"}
        ]
      }
    ]
  },
  {
    "type": "event",
    "name": "NFTDeployed",
    "anonymous": false,
    "inputs": [
      {"name": "nft", "type": "address", "indexed": true},
      {"name": "name", "type": "string", "indexed": false},
      {"name": "symbol", "type": "string", "indexed": false}
    ]
  }
]`
