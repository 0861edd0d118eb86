package mint

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cashuhub/ecash-core/cashu"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut01"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut02"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut03"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut04"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut05"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut07"
	"github.com/cashuhub/ecash-core/cashu/nuts/nut09"
	"github.com/cashuhub/ecash-core/crypto"
	"github.com/gorilla/mux"
)

// MintServer exposes a Mint over the NUT HTTP API that wallet/client.go
// talks to.
type MintServer struct {
	httpServer *http.Server
	mint       *Mint
	cache      *Cache
}

func SetupMintServer(config Config) (*MintServer, error) {
	mint, err := LoadMint(config)
	if err != nil {
		return nil, err
	}

	mintServer := &MintServer{mint: mint, cache: NewCache()}
	mintServer.setupHttpServer(config.Port)
	return mintServer, nil
}

func StartMintServer(server *MintServer) {
	server.mint.logInfof("mint server listening on: %v", server.httpServer.Addr)
	log.Fatal(server.httpServer.ListenAndServe())
}

func (ms *MintServer) setupHttpServer(port string) {
	r := mux.NewRouter()

	r.HandleFunc("/v1/keys", ms.getActiveKeysets).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/v1/keysets", ms.getKeysetsList).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/v1/keys/{id}", ms.getKeysetById).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/v1/mint/quote/bolt11", ms.mintQuoteRequest).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/v1/mint/quote/bolt11/{quote_id}", ms.mintQuoteState).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/v1/mint/bolt11", ms.mintTokensRequest).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/v1/swap", ms.swapRequest).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/v1/melt/quote/bolt11", ms.meltQuoteRequest).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/v1/melt/quote/bolt11/{quote_id}", ms.meltQuoteState).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/v1/melt/bolt11", ms.meltTokensRequest).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/v1/checkstate", ms.checkStateRequest).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/v1/restore", ms.restoreRequest).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/v1/info", ms.mintInfoRequest).Methods(http.MethodGet, http.MethodOptions)

	r.Use(corsHeaders)

	if len(port) == 0 {
		port = "3338"
	}
	ms.httpServer = &http.Server{Addr: "127.0.0.1:" + port, Handler: r}
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.Header().Set("Access-Control-Allow-Origin", "*")
		rw.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		rw.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, origin")
		if req.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(rw, req)
	})
}

func decodeJsonReqBody(req *http.Request, dst any) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return cashu.StandardErr
	}
	if len(body) == 0 {
		return cashu.EmptyBodyErr
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return cashu.StandardErr
	}
	return nil
}

func (ms *MintServer) writeResponse(rw http.ResponseWriter, req *http.Request, response []byte, logmsg string) {
	ms.mint.logInfof("%v [%v %v]", logmsg, req.Method, req.URL.String())
	rw.Write(response)
}

func (ms *MintServer) writeErr(rw http.ResponseWriter, req *http.Request, errResponse error) {
	code := http.StatusBadRequest
	ms.mint.logErrorf("%v [%v %v status=%v]", errResponse, req.Method, req.URL.String(), code)
	rw.WriteHeader(code)
	errRes, _ := json.Marshal(errResponse)
	rw.Write(errRes)
}

func buildKeysResponse(keysets map[string]crypto.MintKeyset) nut01.GetKeysResponse {
	keysetsResponse := nut01.GetKeysResponse{Keysets: make([]nut01.Keyset, len(keysets))}
	i := 0
	for _, keyset := range keysets {
		keysetsResponse.Keysets[i] = nut01.Keyset{
			Id:   keyset.Id,
			Unit: keyset.Unit,
			Keys: keyset.PublicKeys(),
		}
		i++
	}
	return keysetsResponse
}

func (ms *MintServer) getActiveKeysets(rw http.ResponseWriter, req *http.Request) {
	jsonRes, err := json.Marshal(buildKeysResponse(ms.mint.activeKeysets))
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "returning active keysets")
}

func (ms *MintServer) getKeysetsList(rw http.ResponseWriter, req *http.Request) {
	response := nut02.GetKeysetsResponse{Keysets: make([]nut02.Keyset, 0, len(ms.mint.keysets))}
	for _, keyset := range ms.mint.keysets {
		response.Keysets = append(response.Keysets, nut02.Keyset{
			Id:          keyset.Id,
			Unit:        keyset.Unit,
			Active:      keyset.Active,
			InputFeePpk: keyset.InputFeePpk,
		})
	}
	jsonRes, err := json.Marshal(response)
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "returning all keysets")
}

func (ms *MintServer) getKeysetById(rw http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	ks, ok := ms.mint.keysets[id]
	if !ok {
		ms.writeErr(rw, req, cashu.UnknownKeysetErr)
		return
	}
	jsonRes, err := json.Marshal(buildKeysResponse(map[string]crypto.MintKeyset{ks.Id: ks}))
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "returned keyset with id: "+id)
}

func (ms *MintServer) mintQuoteRequest(rw http.ResponseWriter, req *http.Request) {
	var mintReq nut04.PostMintQuoteBolt11Request
	if err := decodeJsonReqBody(req, &mintReq); err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	mintQuote, err := ms.mint.RequestMintQuote(BOLT11_METHOD, mintReq.Amount, mintReq.Unit)
	if err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	response := nut04.PostMintQuoteBolt11Response{
		Quote:   mintQuote.Id,
		Request: mintQuote.PaymentRequest,
		State:   mintQuote.State,
		Expiry:  int64(mintQuote.Expiry),
	}
	jsonRes, err := json.Marshal(response)
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, fmt.Sprintf("mint quote request for %v %v", mintReq.Amount, mintReq.Unit))
}

func (ms *MintServer) mintQuoteState(rw http.ResponseWriter, req *http.Request) {
	quoteId := mux.Vars(req)["quote_id"]
	mintQuote, err := ms.mint.GetMintQuoteState(BOLT11_METHOD, quoteId)
	if err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	response := nut04.PostMintQuoteBolt11Response{
		Quote:   mintQuote.Id,
		Request: mintQuote.PaymentRequest,
		State:   mintQuote.State,
		Expiry:  int64(mintQuote.Expiry),
	}
	jsonRes, err := json.Marshal(response)
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "returning state of mint quote '"+quoteId+"'")
}

func (ms *MintServer) mintTokensRequest(rw http.ResponseWriter, req *http.Request) {
	var mintRequest nut04.PostMintBolt11Request
	if err := decodeJsonReqBody(req, &mintRequest); err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	signatures, err := ms.mint.MintTokens(BOLT11_METHOD, mintRequest.Quote, mintRequest.Outputs)
	if err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	jsonRes, err := json.Marshal(nut04.PostMintBolt11Response{Signatures: signatures})
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "minted tokens for quote '"+mintRequest.Quote+"'")
}

func (ms *MintServer) swapRequest(rw http.ResponseWriter, req *http.Request) {
	var swapReq nut03.PostSwapRequest
	if err := decodeJsonReqBody(req, &swapReq); err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	signatures, err := ms.mint.Swap(swapReq.Inputs, swapReq.Outputs)
	if err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	jsonRes, err := json.Marshal(nut03.PostSwapResponse{Signatures: signatures})
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "processed swap")
}

func (ms *MintServer) meltQuoteRequest(rw http.ResponseWriter, req *http.Request) {
	var meltReq nut05.PostMeltQuoteBolt11Request
	if err := decodeJsonReqBody(req, &meltReq); err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	meltQuote, err := ms.mint.RequestMeltQuote(BOLT11_METHOD, meltReq.Request, meltReq.Unit)
	if err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	response := nut05.PostMeltQuoteBolt11Response{
		Quote:      meltQuote.Id,
		Amount:     meltQuote.Amount,
		FeeReserve: meltQuote.FeeReserve,
		State:      meltQuote.State,
		Expiry:     int64(meltQuote.Expiry),
	}
	jsonRes, err := json.Marshal(response)
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "melt quote request for "+meltReq.Request)
}

func (ms *MintServer) meltQuoteState(rw http.ResponseWriter, req *http.Request) {
	quoteId := mux.Vars(req)["quote_id"]
	meltQuote, err := ms.mint.GetMeltQuoteState(req.Context(), BOLT11_METHOD, quoteId)
	if err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	response := nut05.PostMeltQuoteBolt11Response{
		Quote:      meltQuote.Id,
		Amount:     meltQuote.Amount,
		FeeReserve: meltQuote.FeeReserve,
		State:      meltQuote.State,
		Expiry:     int64(meltQuote.Expiry),
	}
	jsonRes, err := json.Marshal(response)
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "returning state of melt quote '"+quoteId+"'")
}

func (ms *MintServer) meltTokensRequest(rw http.ResponseWriter, req *http.Request) {
	var meltReq nut05.PostMeltBolt11Request
	if err := decodeJsonReqBody(req, &meltReq); err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	meltQuote, err := ms.mint.MeltTokens(req.Context(), BOLT11_METHOD, meltReq.Quote, meltReq.Inputs)
	if err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	response := nut05.PostMeltBolt11Response{State: meltQuote.State, Preimage: meltQuote.Preimage}
	jsonRes, err := json.Marshal(response)
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "melted tokens for quote '"+meltReq.Quote+"'")
}

func (ms *MintServer) checkStateRequest(rw http.ResponseWriter, req *http.Request) {
	var stateReq nut07.PostCheckStateRequest
	if err := decodeJsonReqBody(req, &stateReq); err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	states, err := ms.mint.ProofsStateCheck(stateReq.Ys)
	if err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	jsonRes, err := json.Marshal(nut07.PostCheckStateResponse{States: states})
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "returning proof states")
}

func (ms *MintServer) restoreRequest(rw http.ResponseWriter, req *http.Request) {
	var restoreReq nut09.PostRestoreRequest
	if err := decodeJsonReqBody(req, &restoreReq); err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	outputs, signatures, err := ms.mint.RestoreSignatures(restoreReq.Outputs)
	if err != nil {
		ms.writeErr(rw, req, err)
		return
	}

	jsonRes, err := json.Marshal(nut09.PostRestoreResponse{Outputs: outputs, Signatures: signatures})
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "restored signatures")
}

func (ms *MintServer) mintInfoRequest(rw http.ResponseWriter, req *http.Request) {
	info, err := ms.mint.RetrieveMintInfo()
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	jsonRes, err := json.Marshal(info)
	if err != nil {
		ms.writeErr(rw, req, cashu.StandardErr)
		return
	}
	ms.writeResponse(rw, req, jsonRes, "returning mint info")
}
